package metrics

import (
	"context"

	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
)

// Tracer integrates job and step execution with a tracing system.
type Tracer interface {
	// StartJobSpan starts a span for a JobExecution and returns a context carrying it
	// with a function that ends the span.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a child span for a StepExecution.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// RecordError records err on the span in ctx.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent adds a named event to the span in ctx.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
	// Shutdown flushes and stops the exporter, if any.
	Shutdown(ctx context.Context) error
}
