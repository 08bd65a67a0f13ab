package sql

import (
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
)

func fromDomainJobExecution(je *model.JobExecution) *JobExecutionEntity {
	return &JobExecutionEntity{
		ID:          je.ID,
		JobName:     je.JobName,
		Parameters:  je.Parameters,
		StartTime:   je.StartTime,
		EndTime:     je.EndTime,
		Status:      je.Status,
		ExitStatus:  je.ExitStatus,
		Failures:    je.Failures,
		Version:     je.Version,
		CreateTime:  je.CreateTime,
		LastUpdated: je.LastUpdated,
	}
}

func toDomainJobExecution(entity *JobExecutionEntity) *model.JobExecution {
	params := entity.Parameters
	if params == nil {
		params = model.JobParameters{}
	}
	failures := entity.Failures
	if failures == nil {
		failures = model.FailureList{}
	}
	return &model.JobExecution{
		ID:             entity.ID,
		JobName:        entity.JobName,
		Parameters:     params,
		StartTime:      entity.StartTime,
		EndTime:        entity.EndTime,
		Status:         entity.Status,
		ExitStatus:     entity.ExitStatus,
		Failures:       failures,
		Version:        entity.Version,
		CreateTime:     entity.CreateTime,
		LastUpdated:    entity.LastUpdated,
		StepExecutions: make([]*model.StepExecution, 0),
	}
}

func fromDomainStepExecution(se *model.StepExecution) *StepExecutionEntity {
	return &StepExecutionEntity{
		ID:             se.ID,
		JobExecutionID: se.JobExecutionID,
		StepName:       se.StepName,
		StartTime:      se.StartTime,
		EndTime:        se.EndTime,
		Status:         se.Status,
		ExitStatus:     se.ExitStatus,
		Failures:       se.Failures,
		ReadCount:      se.ReadCount,
		WriteCount:     se.WriteCount,
		FilterCount:    se.FilterCount,
		Version:        se.Version,
		LastUpdated:    se.LastUpdated,
	}
}

func toDomainStepExecution(entity *StepExecutionEntity) *model.StepExecution {
	failures := entity.Failures
	if failures == nil {
		failures = model.FailureList{}
	}
	return &model.StepExecution{
		ID:             entity.ID,
		StepName:       entity.StepName,
		JobExecutionID: entity.JobExecutionID,
		StartTime:      entity.StartTime,
		EndTime:        entity.EndTime,
		Status:         entity.Status,
		ExitStatus:     entity.ExitStatus,
		Failures:       failures,
		ReadCount:      entity.ReadCount,
		WriteCount:     entity.WriteCount,
		FilterCount:    entity.FilterCount,
		Version:        entity.Version,
		LastUpdated:    entity.LastUpdated,
	}
}

func fromDomainTablePublication(p *model.TablePublication) *TablePublicationEntity {
	return &TablePublicationEntity{
		ID:             p.ID,
		JobExecutionID: p.JobExecutionID,
		Table:          p.TableName,
		Location:       p.Location,
		RowCount:       p.RowCount,
		Partitions:     p.Partitions,
		Files:          p.Files,
		Status:         p.Status,
		LastUpdated:    p.LastUpdated,
	}
}

func toDomainTablePublication(entity *TablePublicationEntity) *model.TablePublication {
	return &model.TablePublication{
		ID:             entity.ID,
		JobExecutionID: entity.JobExecutionID,
		TableName:      entity.Table,
		Location:       entity.Location,
		RowCount:       entity.RowCount,
		Partitions:     entity.Partitions,
		Files:          entity.Files,
		Status:         entity.Status,
		LastUpdated:    entity.LastUpdated,
	}
}
