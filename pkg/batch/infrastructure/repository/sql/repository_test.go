package sql_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/songplays/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/songplays/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/songplays/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/songplays/pkg/batch/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/songplays/pkg/batch/core/config"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
	sqlrepo "github.com/tigerroll/songplays/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
)

func newSQLiteRepository(t *testing.T) repository.JobRepository {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Songplays.Infrastructure.JobRepositoryType = config.JobRepositorySQL
	cfg.SetAdapterValue("database", "metadata", "type", "sqlite")
	cfg.SetAdapterValue("database", "metadata", "database", filepath.Join(t.TempDir(), "metadata.db"))

	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.GormDBConnectionResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = resolver.CloseAll() })

	repo, err := sqlrepo.NewJobRepository(sqlrepo.JobRepositoryParams{DBResolver: resolver, Cfg: cfg})
	require.NoError(t, err)

	// A second migration run is a no-op.
	require.NoError(t, sqlrepo.Migrate(context.Background(), resolver, "metadata"))
	return repo
}

func TestSQLJobRepository_ExecutionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	je := model.NewJobExecution("songplaysJob", model.JobParameters{"input": "/in", "output": "/out"})
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	catalog := model.NewStepExecution(je, "catalogStep")
	require.NoError(t, repo.SaveStepExecution(ctx, catalog))
	catalog.MarkAsStarted()
	require.NoError(t, repo.UpdateStepExecution(ctx, catalog))
	catalog.ReadCount, catalog.WriteCount = 71, 142
	catalog.MarkAsCompleted()
	require.NoError(t, repo.UpdateStepExecution(ctx, catalog))
	assert.Equal(t, 2, catalog.Version)

	je.MarkAsStarted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))
	je.MarkAsFailed(errors.New("log_data is empty"))
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	loaded, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, loaded.Status)
	assert.Equal(t, model.ExitStatusFailed, loaded.ExitStatus)
	assert.Equal(t, "/out", loaded.Parameters["output"])
	assert.Equal(t, model.FailureList{"log_data is empty"}, loaded.Failures)
	require.NotNil(t, loaded.EndTime)
	assert.Equal(t, 2, loaded.Version)

	require.Len(t, loaded.StepExecutions, 1)
	step := loaded.StepExecutions[0]
	assert.Equal(t, "catalogStep", step.StepName)
	assert.Equal(t, model.BatchStatusCompleted, step.Status)
	assert.Equal(t, 71, step.ReadCount)
	assert.Equal(t, 142, step.WriteCount)
	assert.Same(t, loaded, step.JobExecution)

	byID, err := repo.FindStepExecutionByID(ctx, catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.ID, byID.ID)

	_, err = repo.FindJobExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
	_, err = repo.FindStepExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrStepExecutionNotFound)
}

func TestSQLJobRepository_OptimisticLocking(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	je := model.NewJobExecution("songplaysJob", nil)
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	je.MarkAsStarted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	stale := model.NewJobExecution("songplaysJob", nil)
	stale.ID = je.ID
	stale.MarkAsStarted()
	err := repo.UpdateJobExecution(ctx, stale)
	require.Error(t, err)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 0, stale.Version)
}

func TestSQLJobRepository_TablePublications(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	je := model.NewJobExecution("songplaysJob", nil)
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	songs := model.NewTablePublication(je.ID, "songs", "/out/_staging/r1/songs_data")
	songs.RowCount, songs.Partitions, songs.Files = 71, 69, 69
	require.NoError(t, repo.SaveTablePublication(ctx, songs))
	artists := model.NewTablePublication(je.ID, "artists", "/out/_staging/r1/artists_table")
	require.NoError(t, repo.SaveTablePublication(ctx, artists))

	songs.Status = model.PublicationPublished
	songs.Location = "/out/songs_data"
	require.NoError(t, repo.SaveTablePublication(ctx, songs))

	pubs, err := repo.FindTablePublications(ctx, je.ID)
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.Equal(t, "artists", pubs[0].TableName)
	assert.Equal(t, model.PublicationStaged, pubs[0].Status)
	assert.Equal(t, "songs", pubs[1].TableName)
	assert.Equal(t, model.PublicationPublished, pubs[1].Status)
	assert.Equal(t, "/out/songs_data", pubs[1].Location)
	assert.Equal(t, 71, pubs[1].RowCount)
}

// staticResolver always returns the same connection.
type staticResolver struct {
	conn database.DBConnection
}

func (r staticResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	return r.conn, nil
}

func (r staticResolver) CloseAll() error { return nil }

func newMockRepository(t *testing.T) (repository.JobRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormadapter.NewGormLogger("SILENT"),
	})
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(gdb, dbconfig.DatabaseConfig{Type: "postgres"}, "metadata")
	require.NoError(t, err)

	return sqlrepo.NewSQLJobRepository(staticResolver{conn: conn}, "metadata"), mock
}

func TestSQLJobRepository_SaveFailureIsBatchError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO "batch_job_execution"`).WillReturnError(errors.New("connection reset"))

	err := repo.SaveJobExecution(context.Background(), model.NewJobExecution("songplaysJob", nil))
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLJobRepository_UpdateWithStaleVersion(t *testing.T) {
	repo, mock := newMockRepository(t)

	je := model.NewJobExecution("songplaysJob", nil)
	je.Version = 3
	mock.ExpectExec(`UPDATE "batch_job_execution" SET .* WHERE .*version`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateJobExecution(context.Background(), je)
	require.Error(t, err)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 3, je.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLJobRepository_QueryFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT \* FROM "batch_table_publication"`).WillReturnError(errors.New("permission denied"))

	_, err := repo.FindTablePublications(context.Background(), "run-1")
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
