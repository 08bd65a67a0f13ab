package step

import (
	"context"

	domainModel "github.com/tigerroll/songplays/internal/domain/model"
	"github.com/tigerroll/songplays/internal/transform"
	"github.com/tigerroll/songplays/pkg/batch/component/step/reader"
	"github.com/tigerroll/songplays/pkg/batch/core/application/port"
	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// FactTasklet resolves the plays of the run against the persisted songs
// table and writes the songplays table.
type FactTasklet struct {
	deps  Deps
	state *RunState
}

// NewFactTasklet creates a FactTasklet.
func NewFactTasklet(deps Deps, state *RunState) *FactTasklet {
	return &FactTasklet{deps: deps, state: state}
}

// Execute implements port.Tasklet.
func (t *FactTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	plays, ok := t.state.Plays()
	if !ok {
		return model.ExitStatusFailed, exception.NewJoinError("fact", "song plays of this run are not available", nil)
	}

	songs, err := t.readSongs(ctx)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	result := transform.ResolveSongplays(plays, songs, t.deps.Zone)
	se.ReadCount = len(plays)
	se.FilterCount = result.Unmatched
	t.deps.Recorder.RecordItemRead(ctx, se.StepName, len(plays))
	t.deps.Recorder.RecordItemFilter(ctx, se.StepName, result.Unmatched)
	if len(result.Rows) == 0 {
		logger.Warnf("Fact: none of %d plays matched the catalog; songplays will be empty.", len(plays))
	}

	written, err := writeTable(ctx, t.deps, t.state, se, t.state.Layout.Table(TableSongplays), result.Rows, songplayPartition(t.deps.Zone))
	if err != nil {
		return model.ExitStatusFailed, err
	}
	se.WriteCount = written.Rows
	logger.Infof("Fact: %d plays against %d songs -> songplays=%d (unmatched %d).", len(plays), len(songs), written.Rows, result.Unmatched)
	return model.ExitStatusCompleted, nil
}

// readSongs re-reads the songs table from where the catalog step wrote it.
func (t *FactTasklet) readSongs(ctx context.Context) ([]domainModel.SongRow, error) {
	location := t.state.Layout.Table(TableSongs).Target.String()
	r, err := reader.NewParquetReader[domainModel.SongRow](TableSongs, map[string]interface{}{
		"location": location,
	}, t.deps.Storage)
	if err != nil {
		return nil, exception.NewJoinError("fact", "invalid songs location", err)
	}
	if err := r.Open(ctx); err != nil {
		return nil, exception.NewJoinError("fact", "songs table is not available", err)
	}
	defer r.Close(ctx)
	songs, err := r.Read(ctx)
	if err != nil {
		return nil, exception.NewJoinError("fact", "failed to read songs table", err)
	}
	return songs, nil
}

// Close implements port.Tasklet.
func (t *FactTasklet) Close(ctx context.Context) error {
	return nil
}

var _ port.Tasklet = (*FactTasklet)(nil)
