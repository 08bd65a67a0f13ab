// Package step holds the tasklets of the songplays job.
package step

import (
	"context"
	"time"

	"github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	"github.com/tigerroll/songplays/pkg/batch/component/step/writer"
	"github.com/tigerroll/songplays/pkg/batch/core/config"
	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
	"github.com/tigerroll/songplays/pkg/batch/core/metrics"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// Deps groups the collaborators shared by every tasklet.
type Deps struct {
	Pipeline *config.PipelineConfig
	// Zone is the session time zone used for calendar fields.
	Zone     *time.Location
	Storage  storage.StorageConnectionResolver
	Repo     repository.JobRepository
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// writeTable writes rows as one Parquet table at table.Target, replacing
// whatever was there, and records the publication of the run.
func writeTable[T any](
	ctx context.Context,
	deps Deps,
	state *RunState,
	se *model.StepExecution,
	table TableLocation,
	rows []T,
	partitionFunc writer.PartitionFunc[T],
) (writer.WriteResult, error) {
	started := time.Now()
	publication := model.NewTablePublication(se.JobExecutionID, table.Name, table.Target.String())

	w, err := writer.NewParquetWriter[T](table.Name, map[string]interface{}{
		"location":        table.Target.String(),
		"compressionType": deps.Pipeline.CompressionType,
		"runId":           state.Layout.RunID,
		"overwrite":       true,
	}, deps.Storage, new(T), partitionFunc)
	if err != nil {
		return writer.WriteResult{}, failPublication(ctx, deps, publication, err)
	}
	if err := w.Open(ctx); err != nil {
		return writer.WriteResult{}, failPublication(ctx, deps, publication, err)
	}
	if err := w.Write(ctx, rows); err != nil {
		return writer.WriteResult{}, failPublication(ctx, deps, publication, err)
	}
	if err := w.Close(ctx); err != nil {
		return writer.WriteResult{}, failPublication(ctx, deps, publication, err)
	}

	result := w.Result()
	publication.RowCount = result.Rows
	publication.Partitions = result.Partitions
	publication.Files = len(result.Files)
	if !table.Staged() {
		publication.Status = model.PublicationPublished
	}
	if err := deps.Repo.SaveTablePublication(ctx, publication); err != nil {
		return result, err
	}

	state.recordResult(table.Name, result)
	deps.Recorder.RecordTableWrite(ctx, table.Name, result.Rows, result.Partitions)
	deps.Recorder.RecordDuration(ctx, "table_write", time.Since(started), map[string]string{"table": table.Name})
	deps.Tracer.RecordEvent(ctx, "table_written", map[string]interface{}{
		"table":      table.Name,
		"rows":       result.Rows,
		"partitions": result.Partitions,
	})
	return result, nil
}

func failPublication(ctx context.Context, deps Deps, publication *model.TablePublication, cause error) error {
	publication.Status = model.PublicationFailed
	publication.LastUpdated = time.Now()
	if err := deps.Repo.SaveTablePublication(ctx, publication); err != nil {
		logger.Warnf("Failed to record FAILED publication of table '%s': %v", publication.TableName, err)
	}
	return cause
}
