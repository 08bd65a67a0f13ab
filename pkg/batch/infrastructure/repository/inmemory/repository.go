// Package inmemory provides a JobRepository that keeps run metadata in process memory.
// It is the default store: a single pipeline run needs no durable metadata.
package inmemory

import (
	"sync"

	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
)

// InMemoryJobRepository stores snapshots of executions and publications in maps.
type InMemoryJobRepository struct {
	jobExecutions  map[string]*model.JobExecution
	stepExecutions map[string]*model.StepExecution
	// publications is keyed by job execution ID, then table name.
	publications map[string]map[string]*model.TablePublication
	mu           sync.RWMutex
}

// NewInMemoryJobRepository creates an empty repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobExecutions:  make(map[string]*model.JobExecution),
		stepExecutions: make(map[string]*model.StepExecution),
		publications:   make(map[string]map[string]*model.TablePublication),
	}
}

// Close is a no-op.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

// snapshotJob copies the persisted fields of je. Step executions are attached on read.
func snapshotJob(je *model.JobExecution) *model.JobExecution {
	params := make(model.JobParameters, len(je.Parameters))
	for k, v := range je.Parameters {
		params[k] = v
	}
	return &model.JobExecution{
		ID:          je.ID,
		JobName:     je.JobName,
		Parameters:  params,
		StartTime:   je.StartTime,
		EndTime:     je.EndTime,
		Status:      je.Status,
		ExitStatus:  je.ExitStatus,
		Failures:    append(model.FailureList(nil), je.Failures...),
		Version:     je.Version,
		CreateTime:  je.CreateTime,
		LastUpdated: je.LastUpdated,
	}
}

func snapshotStep(se *model.StepExecution) *model.StepExecution {
	cloned := *se
	cloned.JobExecution = nil
	cloned.Failures = append(model.FailureList(nil), se.Failures...)
	return &cloned
}
