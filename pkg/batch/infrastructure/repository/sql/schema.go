package sql

import (
	"time"

	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
)

// JobExecutionEntity is the persisted form of model.JobExecution.
type JobExecutionEntity struct {
	ID          string              `gorm:"primaryKey;column:id"`
	JobName     string              `gorm:"column:job_name"`
	Parameters  model.JobParameters `gorm:"column:parameters"`
	StartTime   time.Time           `gorm:"column:start_time"`
	EndTime     *time.Time          `gorm:"column:end_time"`
	Status      model.JobStatus     `gorm:"column:status"`
	ExitStatus  model.ExitStatus    `gorm:"column:exit_status"`
	Failures    model.FailureList   `gorm:"column:failures"`
	Version     int                 `gorm:"column:version"`
	CreateTime  time.Time           `gorm:"column:create_time"`
	LastUpdated time.Time           `gorm:"column:last_updated"`
}

func (JobExecutionEntity) TableName() string {
	return "batch_job_execution"
}

// StepExecutionEntity is the persisted form of model.StepExecution.
type StepExecutionEntity struct {
	ID             string            `gorm:"primaryKey;column:id"`
	JobExecutionID string            `gorm:"column:job_execution_id"`
	StepName       string            `gorm:"column:step_name"`
	StartTime      time.Time         `gorm:"column:start_time"`
	EndTime        *time.Time        `gorm:"column:end_time"`
	Status         model.JobStatus   `gorm:"column:status"`
	ExitStatus     model.ExitStatus  `gorm:"column:exit_status"`
	Failures       model.FailureList `gorm:"column:failures"`
	ReadCount      int               `gorm:"column:read_count"`
	WriteCount     int               `gorm:"column:write_count"`
	FilterCount    int               `gorm:"column:filter_count"`
	Version        int               `gorm:"column:version"`
	LastUpdated    time.Time         `gorm:"column:last_updated"`
}

func (StepExecutionEntity) TableName() string {
	return "batch_step_execution"
}

// TablePublicationEntity is the persisted form of model.TablePublication.
type TablePublicationEntity struct {
	ID             string                  `gorm:"primaryKey;column:id"`
	JobExecutionID string                  `gorm:"column:job_execution_id"`
	Table          string                  `gorm:"column:table_name"`
	Location       string                  `gorm:"column:location"`
	RowCount       int                     `gorm:"column:row_count"`
	Partitions     int                     `gorm:"column:partitions"`
	Files          int                     `gorm:"column:files"`
	Status         model.PublicationStatus `gorm:"column:status"`
	LastUpdated    time.Time               `gorm:"column:last_updated"`
}

func (TablePublicationEntity) TableName() string {
	return "batch_table_publication"
}
