package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
)

// SaveJobExecution stores a new JobExecution.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return fmt.Errorf("JobExecution with ID %s already exists", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = snapshotJob(jobExecution)
	return nil
}

// UpdateJobExecution replaces a stored JobExecution and bumps its version.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; !exists {
		return fmt.Errorf("JobExecution with ID %s not found for update", jobExecution.ID)
	}
	jobExecution.Version++
	r.jobExecutions[jobExecution.ID] = snapshotJob(jobExecution)
	return nil
}

// FindJobExecutionByID returns a copy of the JobExecution with its steps ordered by start time.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.jobExecutions[executionID]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	je := snapshotJob(stored)
	for _, se := range r.stepsOf(executionID) {
		step := snapshotStep(se)
		step.JobExecution = je
		je.StepExecutions = append(je.StepExecutions, step)
	}
	return je, nil
}

// stepsOf must be called with r.mu held.
func (r *InMemoryJobRepository) stepsOf(jobExecutionID string) []*model.StepExecution {
	var steps []*model.StepExecution
	for _, se := range r.stepExecutions {
		if se.JobExecutionID == jobExecutionID {
			steps = append(steps, se)
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].StartTime.Equal(steps[j].StartTime) {
			return steps[i].StepName < steps[j].StepName
		}
		return steps[i].StartTime.Before(steps[j].StartTime)
	})
	return steps
}
