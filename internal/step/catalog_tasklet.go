package step

import (
	"context"

	"github.com/tigerroll/songplays/internal/domain/entity"
	"github.com/tigerroll/songplays/internal/transform"
	"github.com/tigerroll/songplays/pkg/batch/component/step/reader"
	"github.com/tigerroll/songplays/pkg/batch/core/application/port"
	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// CatalogTasklet reads song_data and writes the songs and artists tables.
type CatalogTasklet struct {
	deps  Deps
	state *RunState
}

// NewCatalogTasklet creates a CatalogTasklet.
func NewCatalogTasklet(deps Deps, state *RunState) *CatalogTasklet {
	return &CatalogTasklet{deps: deps, state: state}
}

// Execute implements port.Tasklet.
func (t *CatalogTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	records, err := readJSON[entity.SongRecord](ctx, t.deps, "song_data", t.state.Layout.SongData.String())
	if err != nil {
		return model.ExitStatusFailed, err
	}
	se.ReadCount = len(records)
	t.deps.Recorder.RecordItemRead(ctx, se.StepName, len(records))

	songs := transform.SongsTable(records)
	songsResult, err := writeTable(ctx, t.deps, t.state, se, t.state.Layout.Table(TableSongs), songs, songPartition)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	artists := transform.ArtistsTable(records, t.deps.Pipeline.DedupeDimensions)
	artistsResult, err := writeTable(ctx, t.deps, t.state, se, t.state.Layout.Table(TableArtists), artists, nil)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	se.WriteCount = songsResult.Rows + artistsResult.Rows
	logger.Infof("Catalog: %d records -> songs=%d artists=%d.", len(records), songsResult.Rows, artistsResult.Rows)
	return model.ExitStatusCompleted, nil
}

// Close implements port.Tasklet.
func (t *CatalogTasklet) Close(ctx context.Context) error {
	return nil
}

// readJSON decodes every JSON object under location.
func readJSON[T any](ctx context.Context, deps Deps, name, location string) ([]T, error) {
	r, err := reader.NewJSONReader[T](name, map[string]interface{}{
		"location":    location,
		"concurrency": deps.Pipeline.ReadConcurrency,
	}, deps.Storage)
	if err != nil {
		return nil, err
	}
	if err := r.Open(ctx); err != nil {
		return nil, err
	}
	defer r.Close(ctx)
	return r.Read(ctx)
}

var _ port.Tasklet = (*CatalogTasklet)(nil)
