package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/songplays/pkg/batch/adapter/database"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// SQLJobRepository implements repository.JobRepository on a named database connection.
type SQLJobRepository struct {
	dbResolver database.DBConnectionResolver
	// dbName is the name of the database connection used by this JobRepository (e.g., "metadata").
	dbName string
}

// NewSQLJobRepository creates a new instance of SQLJobRepository. The schema must already exist.
func NewSQLJobRepository(dbResolver database.DBConnectionResolver, dbName string) *SQLJobRepository {
	return &SQLJobRepository{
		dbResolver: dbResolver,
		dbName:     dbName,
	}
}

func (r *SQLJobRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError("SQLJobRepository", fmt.Sprintf("Failed to resolve DB connection '%s'", r.dbName), err, false, false)
	}
	return conn, nil
}

// --- JobExecution implementation ---

func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "SQLJobRepository.SaveJobExecution"
	entity := fromDomainJobExecution(jobExecution)

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil); err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save JobExecution (ID: %s)", jobExecution.ID), err, false, false)
	}
	return nil
}

func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "SQLJobRepository.UpdateJobExecution"

	originalVersion := jobExecution.Version
	jobExecution.Version++
	jobExecution.LastUpdated = time.Now()
	entity := fromDomainJobExecution(jobExecution)

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		jobExecution.Version = originalVersion
		return err
	}

	rowsAffected, err := conn.ExecuteUpdate(ctx, entity, "UPDATE", entity.TableName(), map[string]interface{}{"version": originalVersion})
	if err != nil {
		jobExecution.Version = originalVersion
		return exception.NewBatchError(op, fmt.Sprintf("failed to update JobExecution (ID: %s)", jobExecution.ID), err, false, false)
	}
	if rowsAffected == 0 {
		jobExecution.Version = originalVersion
		return exception.NewOptimisticLockingFailureException("repository", fmt.Sprintf("JobExecution (ID: %s) with version %d not found for update", jobExecution.ID, originalVersion), nil)
	}
	return nil
}

func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	const op = "SQLJobRepository.FindJobExecutionByID"

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []JobExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"id": executionID}, "", 1); err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, repository.ErrJobExecutionNotFound
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find JobExecution by ID: %s", executionID), err, false, false)
	}
	if len(entities) == 0 {
		return nil, repository.ErrJobExecutionNotFound
	}

	je := toDomainJobExecution(&entities[0])
	steps, err := r.FindStepExecutionsByJobExecutionID(ctx, executionID)
	if err != nil {
		logger.Errorf("%s: Failed to load StepExecutions for JobExecution (ID: %s): %v", op, executionID, err)
		return je, nil
	}
	for _, se := range steps {
		se.JobExecution = je
	}
	je.StepExecutions = steps
	return je, nil
}

// --- StepExecution implementation ---

func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "SQLJobRepository.SaveStepExecution"
	entity := fromDomainStepExecution(stepExecution)

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil); err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save StepExecution (ID: %s)", stepExecution.ID), err, false, false)
	}
	return nil
}

func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "SQLJobRepository.UpdateStepExecution"

	originalVersion := stepExecution.Version
	stepExecution.Version++
	stepExecution.LastUpdated = time.Now()
	entity := fromDomainStepExecution(stepExecution)

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		stepExecution.Version = originalVersion
		return err
	}

	rowsAffected, err := conn.ExecuteUpdate(ctx, entity, "UPDATE", entity.TableName(), map[string]interface{}{"version": originalVersion})
	if err != nil {
		stepExecution.Version = originalVersion
		return exception.NewBatchError(op, fmt.Sprintf("failed to update StepExecution (ID: %s)", stepExecution.ID), err, false, false)
	}
	if rowsAffected == 0 {
		stepExecution.Version = originalVersion
		return exception.NewOptimisticLockingFailureException("repository", fmt.Sprintf("StepExecution (ID: %s) with version %d not found for update", stepExecution.ID, originalVersion), nil)
	}
	return nil
}

func (r *SQLJobRepository) FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error) {
	const op = "SQLJobRepository.FindStepExecutionByID"

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []StepExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"id": executionID}, "", 1); err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, repository.ErrStepExecutionNotFound
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find StepExecution by ID: %s", executionID), err, false, false)
	}
	if len(entities) == 0 {
		return nil, repository.ErrStepExecutionNotFound
	}
	return toDomainStepExecution(&entities[0]), nil
}

// FindStepExecutionsByJobExecutionID retrieves the StepExecutions of a run ordered by start time.
func (r *SQLJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	const op = "SQLJobRepository.FindStepExecutionsByJobExecutionID"

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []StepExecutionEntity
	err = conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"job_execution_id": jobExecutionID}, "start_time asc, step_name asc", 0)
	if err != nil {
		if conn.IsTableNotExistError(err) {
			return []*model.StepExecution{}, nil
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find StepExecutions by JobExecution ID: %s", jobExecutionID), err, false, false)
	}

	steps := make([]*model.StepExecution, len(entities))
	for i := range entities {
		steps[i] = toDomainStepExecution(&entities[i])
	}
	return steps, nil
}

// --- TablePublication implementation ---

var publicationUpdateColumns = []string{"location", "row_count", "partitions", "files", "status", "last_updated"}

// SaveTablePublication inserts the record or replaces the mutable columns of (run, table).
func (r *SQLJobRepository) SaveTablePublication(ctx context.Context, publication *model.TablePublication) error {
	const op = "SQLJobRepository.SaveTablePublication"
	publication.LastUpdated = time.Now()
	entity := fromDomainTablePublication(publication)

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecuteUpsert(ctx, entity, entity.TableName(), []string{"job_execution_id", "table_name"}, publicationUpdateColumns)
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save publication of table '%s' (JobExecution ID: %s)", publication.TableName, publication.JobExecutionID), err, false, false)
	}
	return nil
}

func (r *SQLJobRepository) FindTablePublications(ctx context.Context, jobExecutionID string) ([]*model.TablePublication, error) {
	const op = "SQLJobRepository.FindTablePublications"

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []TablePublicationEntity
	err = conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"job_execution_id": jobExecutionID}, "table_name asc", 0)
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find table publications of JobExecution ID: %s", jobExecutionID), err, false, false)
	}

	result := make([]*model.TablePublication, len(entities))
	for i := range entities {
		result[i] = toDomainTablePublication(&entities[i])
	}
	return result, nil
}

// Close implements repository.JobRepository. Connections are owned by the DB providers.
func (r *SQLJobRepository) Close() error {
	return nil
}

// Verify that SQLJobRepository implements all embedded interfaces of repository.JobRepository.
var _ repository.JobRepository = (*SQLJobRepository)(nil)
