package inmemory

import (
	"context"
	"fmt"

	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
)

// SaveStepExecution stores a new StepExecution.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; exists {
		return fmt.Errorf("StepExecution with ID %s already exists", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = snapshotStep(stepExecution)
	return nil
}

// UpdateStepExecution replaces a stored StepExecution and bumps its version.
func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; !exists {
		return fmt.Errorf("StepExecution with ID %s not found for update", stepExecution.ID)
	}
	stepExecution.Version++
	r.stepExecutions[stepExecution.ID] = snapshotStep(stepExecution)
	return nil
}

// FindStepExecutionByID returns a copy of the StepExecution.
func (r *InMemoryJobRepository) FindStepExecutionByID(ctx context.Context, id string) (*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	se, ok := r.stepExecutions[id]
	if !ok {
		return nil, repository.ErrStepExecutionNotFound
	}
	return snapshotStep(se), nil
}

// FindStepExecutionsByJobExecutionID returns copies of the steps of a run ordered by start time.
func (r *InMemoryJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := r.stepsOf(jobExecutionID)
	result := make([]*model.StepExecution, 0, len(steps))
	for _, se := range steps {
		result = append(result, snapshotStep(se))
	}
	return result, nil
}
