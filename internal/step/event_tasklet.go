package step

import (
	"context"

	"github.com/tigerroll/songplays/internal/domain/entity"
	"github.com/tigerroll/songplays/internal/transform"
	"github.com/tigerroll/songplays/pkg/batch/core/application/port"
	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// EventTasklet reads log_data, keeps the song plays and writes the users and
// time tables. The plays are left in the RunState for the fact step.
type EventTasklet struct {
	deps  Deps
	state *RunState
}

// NewEventTasklet creates an EventTasklet.
func NewEventTasklet(deps Deps, state *RunState) *EventTasklet {
	return &EventTasklet{deps: deps, state: state}
}

// Execute implements port.Tasklet.
func (t *EventTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	events, err := readJSON[entity.EventRecord](ctx, t.deps, "log_data", t.state.Layout.LogData.String())
	if err != nil {
		return model.ExitStatusFailed, err
	}
	plays := transform.FilterSongPlays(events)
	se.ReadCount = len(events)
	se.FilterCount = len(events) - len(plays)
	t.deps.Recorder.RecordItemRead(ctx, se.StepName, len(events))
	t.deps.Recorder.RecordItemFilter(ctx, se.StepName, se.FilterCount)

	users := transform.UsersTable(plays, t.deps.Pipeline.DedupeDimensions)
	usersResult, err := writeTable(ctx, t.deps, t.state, se, t.state.Layout.Table(TableUsers), users, nil)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	times := transform.TimeTable(plays, t.deps.Zone)
	timeResult, err := writeTable(ctx, t.deps, t.state, se, t.state.Layout.Table(TableTime), times, timePartition)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	t.state.SetPlays(plays)
	se.WriteCount = usersResult.Rows + timeResult.Rows
	logger.Infof("Events: %d records, %d plays -> users=%d time=%d.", len(events), len(plays), usersResult.Rows, timeResult.Rows)
	return model.ExitStatusCompleted, nil
}

// Close implements port.Tasklet.
func (t *EventTasklet) Close(ctx context.Context) error {
	return nil
}

var _ port.Tasklet = (*EventTasklet)(nil)
