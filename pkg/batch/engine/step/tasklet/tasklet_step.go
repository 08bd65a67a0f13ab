package tasklet

import (
	"context"

	port "github.com/tigerroll/songplays/pkg/batch/core/application/port"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/songplays/pkg/batch/core/metrics"
	exception "github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// TaskletStep is an implementation of port.Step for Tasklet-oriented processing.
type TaskletStep struct {
	id                     string
	tasklet                port.Tasklet
	jobRepository          repository.JobRepository
	stepExecutionListeners []port.StepExecutionListener
	metricRecorder         metrics.MetricRecorder
	tracer                 metrics.Tracer
}

// NewTaskletStep creates a new TaskletStep instance.
// A nil recorder or tracer is replaced by its no-op implementation.
func NewTaskletStep(
	id string,
	tasklet port.Tasklet,
	jobRepository repository.JobRepository,
	stepExecutionListeners []port.StepExecutionListener,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *TaskletStep {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &TaskletStep{
		id:                     id,
		tasklet:                tasklet,
		jobRepository:          jobRepository,
		stepExecutionListeners: stepExecutionListeners,
		metricRecorder:         metricRecorder,
		tracer:                 tracer,
	}
}

// StepName returns the step name.
func (s *TaskletStep) StepName() string {
	return s.id
}

func (s *TaskletStep) notifyBeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

func (s *TaskletStep) notifyAfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
}

// Execute runs the Tasklet and records the outcome on stepExecution.
// The StepExecution must already be saved in the job repository.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	ctx, finishSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer finishSpan()
	ctx = port.GetContextWithStepExecution(ctx, stepExecution)

	// 1. Update StepExecution status to STARTED
	stepExecution.MarkAsStarted()
	s.metricRecorder.RecordStepStart(ctx, stepExecution)
	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		stepExecution.MarkAsFailed(err)
		return exception.NewBatchError(s.id, "failed to update StepExecution status to STARTED", err, false, false)
	}

	// 2. Listener notification (BeforeStep)
	s.notifyBeforeStep(ctx, stepExecution)

	// 3. Execute Tasklet business logic
	exitStatus, err := s.tasklet.Execute(ctx, stepExecution)

	// 4. Close Tasklet
	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		logger.Errorf("TaskletStep '%s': failed to close Tasklet: %v", s.id, closeErr)
		if err == nil {
			err = closeErr
		}
	}

	// 5. Update StepExecution status
	if err != nil {
		s.tracer.RecordError(ctx, s.id, err)
		stepExecution.MarkAsFailed(err)
	} else {
		stepExecution.MarkAsCompleted()
		if exitStatus != "" {
			stepExecution.ExitStatus = exitStatus
		}
	}

	// 6. Listener notification (AfterStep)
	s.notifyAfterStep(ctx, stepExecution)
	s.metricRecorder.RecordStepEnd(ctx, stepExecution)

	// 7. Persistence
	if updateErr := s.jobRepository.UpdateStepExecution(ctx, stepExecution); updateErr != nil {
		logger.Errorf("TaskletStep '%s': failed to update final StepExecution state: %v", s.id, updateErr)
		if err == nil {
			err = updateErr
		}
	}
	return err
}

// Verify that TaskletStep implements the port.Step interface.
var _ port.Step = (*TaskletStep)(nil)
