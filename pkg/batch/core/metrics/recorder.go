package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
)

// MetricRecorder records pipeline metrics independently of the backend.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the end of a JobExecution, including its status and duration.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the end of a StepExecution, including its status and duration.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordItemRead records count input records decoded by a step.
	RecordItemRead(ctx context.Context, stepName string, count int)
	// RecordItemFilter records count input records dropped by a step (page filter, unmatched join).
	RecordItemFilter(ctx context.Context, stepName string, count int)
	// RecordTableWrite records a table written with its row and partition counts.
	RecordTableWrite(ctx context.Context, table string, rows int, partitions int)

	// RecordDuration records the duration of a named operation.
	//   tags: additional labels, e.g. {"table": "songs", "operation": "publish"}
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)

	// Flush delivers buffered metrics to an external sink if one is configured.
	Flush(ctx context.Context) error
}
