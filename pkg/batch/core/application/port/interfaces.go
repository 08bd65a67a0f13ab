// Package port defines the core interfaces (ports) for the batch application.
// These interfaces abstract the application's capabilities and dependencies,
// allowing for flexible implementation and testing.
package port

import (
	"context"

	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
)

// Job is the interface for an executable batch job.
type Job interface {
	// Run executes the entire job flow and records its outcome on jobExecution.
	Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error
	// JobName returns the logical name of the job.
	JobName() string
}

// Step is the interface for a single step executed within a job.
type Step interface {
	// Execute executes the business logic of the step and records its outcome on stepExecution.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	// StepName returns the logical name of the step.
	StepName() string
}

// Split runs a group of steps that do not depend on each other.
type Split interface {
	Steps() []Step
	ID() string
	// Parallel reports whether the steps may run concurrently.
	Parallel() bool
}

// ItemReader loads a complete dataset. Inputs of a batch run are bounded, so
// items are returned as a whole rather than streamed one by one.
// O is the type of item to be read.
type ItemReader[O any] interface {
	// Open resolves the underlying resources.
	Open(ctx context.Context) error
	// Read returns all items.
	Read(ctx context.Context) ([]O, error)
	// Close releases resources acquired in Open.
	Close(ctx context.Context) error
}

// ItemWriter is the interface for a data writing step.
// I is the type of item to be written.
type ItemWriter[I any] interface {
	// Open prepares the target.
	Open(ctx context.Context) error
	// Write buffers or writes items. It may be called several times.
	Write(ctx context.Context, items []I) error
	// Close flushes everything written and finalizes the target.
	Close(ctx context.Context) error
}

// Tasklet is the interface for a step that performs a single operation.
type Tasklet interface {
	// Execute runs the operation. Counters on stepExecution may be updated.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	// Close releases resources after Execute, regardless of its outcome.
	Close(ctx context.Context) error
}

// StepExecutionListener is an interface for handling step execution events.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener is an interface for handling job execution events.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

type contextKey string

// StepExecutionKey is the context key under which the running StepExecution is stored.
const StepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution stores a StepExecution in the Context.
func GetContextWithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, StepExecutionKey, se)
}

// GetStepExecutionFromContext retrieves a StepExecution from the Context. Returns nil if not found.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	if se, ok := ctx.Value(StepExecutionKey).(*model.StepExecution); ok {
		return se
	}
	return nil
}
