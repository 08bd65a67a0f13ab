package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/songplays/pkg/batch/core/application/port"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/core/job/runner"
	"github.com/tigerroll/songplays/pkg/batch/core/job/split"
	"github.com/tigerroll/songplays/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/songplays/pkg/batch/infrastructure/repository/inmemory"
)

type funcTasklet func(ctx context.Context, se *model.StepExecution) error

func (f funcTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	return "", f(ctx, se)
}

func (f funcTasklet) Close(ctx context.Context) error { return nil }

type recordingJobListener struct {
	before, after int
	lastStatus    model.JobStatus
}

func (l *recordingJobListener) BeforeJob(ctx context.Context, je *model.JobExecution) { l.before++ }
func (l *recordingJobListener) AfterJob(ctx context.Context, je *model.JobExecution) {
	l.after++
	l.lastStatus = je.Status
}

func TestFlowJob_RunsElementsInOrder(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()

	var order []string
	record := func(name string) port.Step {
		return tasklet.NewTaskletStep(name, funcTasklet(func(ctx context.Context, se *model.StepExecution) error {
			order = append(order, name)
			se.ReadCount = 1
			return nil
		}), repo, nil, nil, nil)
	}

	listener := &recordingJobListener{}
	job := runner.NewFlowJob("songplaysJob", []runner.FlowElement{
		record("first"),
		split.NewSequentialSplit("dims", []port.Step{record("second"), record("third")}),
		record("fourth"),
	}, repo, []port.JobExecutionListener{listener}, nil, nil)

	je, err := runner.NewSimpleJobLauncher(repo).Launch(ctx, job, model.JobParameters{"input": "/in"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third", "fourth"}, order)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, model.ExitStatusCompleted, je.ExitStatus)
	assert.Len(t, je.StepExecutions, 4)
	assert.Equal(t, 1, listener.before)
	assert.Equal(t, 1, listener.after)
	assert.Equal(t, model.BatchStatusCompleted, listener.lastStatus)

	stored, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	require.Len(t, stored.StepExecutions, 4)
	for _, se := range stored.StepExecutions {
		assert.Equal(t, model.BatchStatusCompleted, se.Status)
		assert.Equal(t, 1, se.ReadCount)
	}
}

func TestFlowJob_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	boom := errors.New("input unreadable")

	var ran int32
	failing := tasklet.NewTaskletStep("failing", funcTasklet(func(ctx context.Context, se *model.StepExecution) error {
		return boom
	}), repo, nil, nil, nil)
	never := tasklet.NewTaskletStep("never", funcTasklet(func(ctx context.Context, se *model.StepExecution) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}), repo, nil, nil, nil)

	job := runner.NewFlowJob("songplaysJob", []runner.FlowElement{failing, never}, repo, nil, nil, nil)
	je, err := runner.NewSimpleJobLauncher(repo).Launch(ctx, job, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.ExitStatusFailed, je.ExitStatus)
	assert.Contains(t, je.Failures[0], "input unreadable")
	require.Len(t, je.StepExecutions, 1)
	assert.Equal(t, model.BatchStatusFailed, je.StepExecutions[0].Status)
}

func TestFlowJob_ParallelSplit(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()

	var count int32
	step := func(name string) port.Step {
		return tasklet.NewTaskletStep(name, funcTasklet(func(ctx context.Context, se *model.StepExecution) error {
			atomic.AddInt32(&count, 1)
			return nil
		}), repo, nil, nil, nil)
	}
	job := runner.NewFlowJob("songplaysJob", []runner.FlowElement{
		split.NewConcreteSplit("loads", []port.Step{step("a"), step("b"), step("c")}),
	}, repo, nil, nil, nil)

	je, err := runner.NewSimpleJobLauncher(repo).Launch(ctx, job, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&count))
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Len(t, je.StepExecutions, 3)
}

func TestFlowJob_RejectsUnknownElement(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	job := runner.NewFlowJob("songplaysJob", []runner.FlowElement{"not a step"}, repo, nil, nil, nil)

	je, err := runner.NewSimpleJobLauncher(repo).Launch(context.Background(), job, nil)
	require.Error(t, err)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
}
