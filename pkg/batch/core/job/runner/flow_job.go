package runner

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	port "github.com/tigerroll/songplays/pkg/batch/core/application/port"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/songplays/pkg/batch/core/metrics"
	exception "github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// FlowElement is a port.Step or a port.Split.
type FlowElement interface{}

// FlowJob is an implementation of port.Job that runs its elements in order.
// The first failing element stops the flow and fails the job.
type FlowJob struct {
	name           string
	elements       []FlowElement
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// Verify that FlowJob implements the port.Job interface.
var _ port.Job = (*FlowJob)(nil)

// NewFlowJob creates a new instance of FlowJob.
func NewFlowJob(
	name string,
	elements []FlowElement,
	jobRepository repository.JobRepository,
	jobListeners []port.JobExecutionListener,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *FlowJob {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &FlowJob{
		name:           name,
		elements:       elements,
		jobRepository:  jobRepository,
		jobListeners:   jobListeners,
		metricRecorder: metricRecorder,
		tracer:         tracer,
	}
}

// JobName returns the job name.
func (j *FlowJob) JobName() string {
	return j.name
}

func (j *FlowJob) notifyBeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *FlowJob) notifyAfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

// Run executes every element and leaves jobExecution COMPLETED or FAILED.
// The JobExecution must already be saved in the job repository.
func (j *FlowJob) Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) (err error) {
	logger.Infof("Starting Job '%s' (Execution ID: %s).", j.name, jobExecution.ID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	jobExecution.MarkAsStarted()
	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	if err := j.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		jobExecution.MarkAsFailed(err)
		return exception.NewBatchError(j.name, "failed to update JobExecution status to STARTED", err, false, false)
	}
	j.notifyBeforeJob(ctx, jobExecution)

	defer func() {
		if err != nil {
			j.tracer.RecordError(ctx, "job_runner", err)
			jobExecution.MarkAsFailed(err)
		} else {
			jobExecution.MarkAsCompleted()
		}
		j.notifyAfterJob(ctx, jobExecution)
		j.metricRecorder.RecordJobEnd(ctx, jobExecution)

		if updateErr := j.jobRepository.UpdateJobExecution(ctx, jobExecution); updateErr != nil {
			logger.Errorf("Job '%s': failed to update final JobExecution state: %v", j.name, updateErr)
			if err == nil {
				err = updateErr
			}
		}
		logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s, Duration: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus, jobExecution.Duration())
	}()

	for _, element := range j.elements {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Context cancelled, interrupting execution of Job '%s': %v", j.name, err)
			return err
		}

		switch elem := element.(type) {
		case port.Split:
			err = j.runSplit(ctx, jobExecution, elem)
		case port.Step:
			_, err = RunStep(ctx, j.jobRepository, jobExecution, elem)
		default:
			err = exception.NewBatchErrorf(j.name, "flow element of type %T is neither a Step nor a Split", element)
		}
		if err != nil {
			logger.Errorf("Job '%s': flow stopped: %v", j.name, err)
			return err
		}
	}
	return nil
}

// runSplit runs the steps of split concurrently or in order. A failing step
// cancels the context of its siblings.
func (j *FlowJob) runSplit(ctx context.Context, jobExecution *model.JobExecution, split port.Split) error {
	steps := split.Steps()
	if !split.Parallel() {
		logger.Infof("Job '%s': executing Split '%s' sequentially (%d steps).", j.name, split.ID(), len(steps))
		for _, step := range steps {
			if _, err := RunStep(ctx, j.jobRepository, jobExecution, step); err != nil {
				return err
			}
		}
		return nil
	}

	logger.Infof("Job '%s': executing Split '%s' in parallel (%d steps).", j.name, split.ID(), len(steps))
	g, gctx := errgroup.WithContext(ctx)
	for _, step := range steps {
		step := step
		g.Go(func() error {
			_, err := RunStep(gctx, j.jobRepository, jobExecution, step)
			return err
		})
	}
	return g.Wait()
}

// saveMu serializes StepExecution creation of concurrent split steps.
var saveMu sync.Mutex

// RunStep creates and saves a StepExecution for step, then executes it.
func RunStep(ctx context.Context, jobRepository repository.JobRepository, jobExecution *model.JobExecution, step port.Step) (*model.StepExecution, error) {
	saveMu.Lock()
	stepExecution := model.NewStepExecution(jobExecution, step.StepName())
	err := jobRepository.SaveStepExecution(ctx, stepExecution)
	saveMu.Unlock()
	if err != nil {
		stepExecution.MarkAsFailed(err)
		return stepExecution, exception.NewBatchError(step.StepName(), fmt.Sprintf("failed to save StepExecution for step '%s'", step.StepName()), err, false, false)
	}

	logger.Infof("Step '%s' starting (StepExecution ID: %s).", step.StepName(), stepExecution.ID)
	if err := step.Execute(ctx, jobExecution, stepExecution); err != nil {
		return stepExecution, err
	}
	logger.Infof("Step '%s' completed. ExitStatus: %s", step.StepName(), stepExecution.ExitStatus)
	return stepExecution, nil
}
