package repository

import (
	"context"

	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
)

// TablePublication persists the per-table status of a run.
type TablePublication interface {
	// SaveTablePublication inserts or replaces the record for (JobExecutionID, TableName).
	SaveTablePublication(ctx context.Context, publication *model.TablePublication) error
	// FindTablePublications returns the records of a run ordered by table name.
	FindTablePublications(ctx context.Context, jobExecutionID string) ([]*model.TablePublication, error)
}
