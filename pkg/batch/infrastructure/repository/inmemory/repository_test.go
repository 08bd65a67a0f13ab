package inmemory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
	"github.com/tigerroll/songplays/pkg/batch/infrastructure/repository/inmemory"
)

func TestInMemoryJobRepository_ExecutionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	var _ repository.JobRepository = repo

	je := model.NewJobExecution("songplaysJob", model.JobParameters{"input": "/in"})
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	assert.Error(t, repo.SaveJobExecution(ctx, je))

	se := model.NewStepExecution(je, "catalogStep")
	require.NoError(t, repo.SaveStepExecution(ctx, se))
	se.MarkAsStarted()
	se.ReadCount = 3
	se.MarkAsCompleted()
	require.NoError(t, repo.UpdateStepExecution(ctx, se))

	je.MarkAsStarted()
	je.MarkAsCompleted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	loaded, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, loaded.Status)
	assert.Equal(t, "/in", loaded.Parameters["input"])
	require.Len(t, loaded.StepExecutions, 1)
	assert.Equal(t, 3, loaded.StepExecutions[0].ReadCount)
	assert.Same(t, loaded, loaded.StepExecutions[0].JobExecution)

	loaded.Parameters["input"] = "mutated"
	again, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, "/in", again.Parameters["input"])

	_, err = repo.FindJobExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
	_, err = repo.FindStepExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrStepExecutionNotFound)
}

func TestInMemoryJobRepository_TablePublications(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()

	songs := model.NewTablePublication("run-1", "songs", "/out/_staging/run-1/songs_data")
	songs.RowCount = 2
	require.NoError(t, repo.SaveTablePublication(ctx, songs))
	require.NoError(t, repo.SaveTablePublication(ctx, model.NewTablePublication("run-1", "artists", "/out/_staging/run-1/artists_table")))

	songs.Status = model.PublicationPublished
	songs.Location = "/out/songs_data"
	require.NoError(t, repo.SaveTablePublication(ctx, songs))

	pubs, err := repo.FindTablePublications(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.Equal(t, "artists", pubs[0].TableName)
	assert.Equal(t, "songs", pubs[1].TableName)
	assert.Equal(t, model.PublicationPublished, pubs[1].Status)
	assert.Equal(t, "/out/songs_data", pubs[1].Location)

	none, err := repo.FindTablePublications(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
