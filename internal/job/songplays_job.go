// Package job assembles the songplays job: extract catalog and events, resolve
// the fact table, then publish the staged tables.
package job

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/songplays/internal/step"
	"github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	"github.com/tigerroll/songplays/pkg/batch/component/step/writer"
	port "github.com/tigerroll/songplays/pkg/batch/core/application/port"
	config "github.com/tigerroll/songplays/pkg/batch/core/config"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
	jobRunner "github.com/tigerroll/songplays/pkg/batch/core/job/runner"
	"github.com/tigerroll/songplays/pkg/batch/core/job/split"
	metrics "github.com/tigerroll/songplays/pkg/batch/core/metrics"
	"github.com/tigerroll/songplays/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// Step names.
const (
	CatalogStep = "catalogStep"
	EventStep   = "eventStep"
	FactStep    = "factStep"
	PublishStep = "publishStep"
)

// SongplaysJob implements port.Job. Every Run builds a fresh flow so runs
// never share state.
type SongplaysJob struct {
	name           string
	deps           step.Deps
	jobListeners   []port.JobExecutionListener
	stepListeners  []port.StepExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// SongplaysJobParams defines the dependencies of NewSongplaysJob.
type SongplaysJobParams struct {
	fx.In
	Pipeline       *config.PipelineConfig
	Zone           *time.Location
	Storage        storage.StorageConnectionResolver
	JobRepository  repository.JobRepository
	MetricRecorder metrics.MetricRecorder
	Tracer         metrics.Tracer
	JobListeners   []port.JobExecutionListener  `group:"jobListeners"`
	StepListeners  []port.StepExecutionListener `group:"stepListeners"`
}

// NewSongplaysJob creates the job.
func NewSongplaysJob(p SongplaysJobParams) *SongplaysJob {
	recorder := p.MetricRecorder
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	tracer := p.Tracer
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SongplaysJob{
		name: p.Pipeline.JobName,
		deps: step.Deps{
			Pipeline: p.Pipeline,
			Zone:     p.Zone,
			Storage:  p.Storage,
			Repo:     p.JobRepository,
			Recorder: recorder,
			Tracer:   tracer,
		},
		jobListeners:   p.JobListeners,
		stepListeners:  p.StepListeners,
		metricRecorder: recorder,
		tracer:         tracer,
	}
}

// JobName implements port.Job.
func (j *SongplaysJob) JobName() string {
	return j.name
}

// Run implements port.Job. In staged mode a failed run discards its staging
// prefix, leaving the live tables as the previous run published them.
func (j *SongplaysJob) Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error {
	layout, err := step.NewLayout(j.deps.Pipeline, jobExecution.ID)
	if err != nil {
		batchErr := exception.NewBatchError(j.name, "invalid pipeline locations", err, false, false)
		jobExecution.MarkAsFailed(batchErr)
		if updateErr := j.deps.Repo.UpdateJobExecution(ctx, jobExecution); updateErr != nil {
			logger.Errorf("Job '%s': failed to record FAILED status: %v", j.name, updateErr)
		}
		return batchErr
	}
	state := step.NewRunState(layout)

	flow := jobRunner.NewFlowJob(j.name, j.elements(state), j.deps.Repo, j.jobListeners, j.metricRecorder, j.tracer)
	runErr := flow.Run(ctx, jobExecution, jobParameters)

	if runErr != nil && layout.Mode != config.PublishModeDirect {
		j.discardStaging(jobExecution, layout)
	}
	j.logSummary(ctx, jobExecution)
	return runErr
}

func (j *SongplaysJob) elements(state *step.RunState) []jobRunner.FlowElement {
	newStep := func(name string, t port.Tasklet) port.Step {
		return tasklet.NewTaskletStep(name, t, j.deps.Repo, j.stepListeners, j.metricRecorder, j.tracer)
	}

	extract := []port.Step{
		newStep(CatalogStep, step.NewCatalogTasklet(j.deps, state)),
		newStep(EventStep, step.NewEventTasklet(j.deps, state)),
	}
	var extractSplit port.Split
	if j.deps.Pipeline.SequentialExtract {
		extractSplit = split.NewSequentialSplit("extractSplit", extract)
	} else {
		extractSplit = split.NewConcreteSplit("extractSplit", extract)
	}

	elements := []jobRunner.FlowElement{
		extractSplit,
		newStep(FactStep, step.NewFactTasklet(j.deps, state)),
	}
	if state.Layout.Mode != config.PublishModeDirect {
		elements = append(elements, newStep(PublishStep, step.NewPublishTasklet(j.deps, state)))
	}
	return elements
}

// discardStaging removes the staging prefix of a failed run and marks the
// tables that never reached their live location as FAILED. It uses its own
// context so a cancelled run still cleans up.
func (j *SongplaysJob) discardStaging(jobExecution *model.JobExecution, layout *step.Layout) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := writer.NewPublisher(j.deps.Storage).Discard(ctx, layout.StagingRoot); err != nil {
		logger.Warnf("Job '%s': failed to discard staging prefix %s: %v", j.name, layout.StagingRoot, err)
	} else {
		logger.Infof("Job '%s': discarded staging prefix %s.", j.name, layout.StagingRoot)
	}

	publications, err := j.deps.Repo.FindTablePublications(ctx, jobExecution.ID)
	if err != nil {
		logger.Warnf("Job '%s': failed to load table publications: %v", j.name, err)
		return
	}
	for _, p := range publications {
		if p.Status != model.PublicationStaged {
			continue
		}
		p.Status = model.PublicationFailed
		p.LastUpdated = time.Now()
		if err := j.deps.Repo.SaveTablePublication(ctx, p); err != nil {
			logger.Warnf("Job '%s': failed to mark table '%s' as FAILED: %v", j.name, p.TableName, err)
		}
	}
}

func (j *SongplaysJob) logSummary(ctx context.Context, jobExecution *model.JobExecution) {
	publications, err := j.deps.Repo.FindTablePublications(ctx, jobExecution.ID)
	if err != nil {
		logger.Warnf("Job '%s': failed to load table publications for the summary: %v", j.name, err)
		return
	}
	logger.Infof("Run %s finished with status %s in %s.", jobExecution.ID, jobExecution.Status, jobExecution.Duration().Round(time.Millisecond))
	for _, p := range publications {
		logger.Infof("  %s", formatPublication(p))
	}
}

func formatPublication(p *model.TablePublication) string {
	return fmt.Sprintf("table %-10s %-9s rows=%d partitions=%d files=%d %s",
		p.TableName, p.Status, p.RowCount, p.Partitions, p.Files, p.Location)
}

var _ port.Job = (*SongplaysJob)(nil)
