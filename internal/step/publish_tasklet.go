package step

import (
	"context"
	"time"

	"github.com/tigerroll/songplays/pkg/batch/component/step/writer"
	"github.com/tigerroll/songplays/pkg/batch/core/application/port"
	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// PublishTasklet moves every staged table of the run to its live location,
// one table at a time in publish order.
type PublishTasklet struct {
	deps      Deps
	state     *RunState
	publisher *writer.Publisher
}

// NewPublishTasklet creates a PublishTasklet.
func NewPublishTasklet(deps Deps, state *RunState) *PublishTasklet {
	return &PublishTasklet{deps: deps, state: state, publisher: writer.NewPublisher(deps.Storage)}
}

// Execute implements port.Tasklet.
func (t *PublishTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	publications, err := t.deps.Repo.FindTablePublications(ctx, se.JobExecutionID)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	byTable := make(map[string]*model.TablePublication, len(publications))
	for _, p := range publications {
		byTable[p.TableName] = p
	}

	for _, name := range TableNames {
		table := t.state.Layout.Table(name)
		if !table.Staged() {
			continue
		}
		publication, ok := byTable[name]
		if !ok {
			publication = model.NewTablePublication(se.JobExecutionID, name, table.Target.String())
		}

		started := time.Now()
		result, err := t.publisher.Publish(ctx, table.Target, table.Live)
		if err != nil {
			publication.Status = model.PublicationFailed
			publication.LastUpdated = time.Now()
			if saveErr := t.deps.Repo.SaveTablePublication(ctx, publication); saveErr != nil {
				logger.Warnf("Failed to record FAILED publication of table '%s': %v", name, saveErr)
			}
			return model.ExitStatusFailed, err
		}
		t.deps.Recorder.RecordDuration(ctx, "table_publish", time.Since(started), map[string]string{"table": name})

		publication.Location = result.Location
		publication.Files = result.Files
		publication.Status = model.PublicationPublished
		publication.LastUpdated = time.Now()
		if err := t.deps.Repo.SaveTablePublication(ctx, publication); err != nil {
			return model.ExitStatusFailed, err
		}
		se.WriteCount++
	}

	if err := t.publisher.Discard(ctx, t.state.Layout.StagingRoot); err != nil {
		logger.Warnf("Publish: failed to remove staging prefix %s: %v", t.state.Layout.StagingRoot, err)
	}
	logger.Infof("Publish: %d tables published.", se.WriteCount)
	return model.ExitStatusCompleted, nil
}

// Close implements port.Tasklet.
func (t *PublishTasklet) Close(ctx context.Context) error {
	return nil
}

var _ port.Tasklet = (*PublishTasklet)(nil)
