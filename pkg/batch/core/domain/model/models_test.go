package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
)

func TestJobExecutionLifecycle(t *testing.T) {
	je := model.NewJobExecution("songplaysJob", model.JobParameters{"input": "/in"})
	assert.Equal(t, model.BatchStatusStarting, je.Status)
	assert.Equal(t, model.ExitStatusUnknown, je.ExitStatus)
	assert.NotEmpty(t, je.ID)

	je.MarkAsStarted()
	assert.Equal(t, model.BatchStatusStarted, je.Status)

	je.MarkAsCompleted()
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, model.ExitStatusCompleted, je.ExitStatus)
	require.NotNil(t, je.EndTime)
	assert.True(t, je.Status.IsFinished())
	assert.Equal(t, 0, je.ExitStatus.ExitCode())

	assert.Error(t, je.TransitionTo(model.BatchStatusStarted))
}

func TestStepFailurePropagatesToJob(t *testing.T) {
	je := model.NewJobExecution("songplaysJob", nil)
	je.MarkAsStarted()
	se := model.NewStepExecution(je, "catalogStep")
	se.MarkAsStarted()

	err := exception.NewReadError("reader", "no song data", errors.New("empty prefix"))
	se.MarkAsFailed(err)
	se.MarkAsFailed(err)

	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Equal(t, model.FailureList{"no song data"}, se.Failures)
	assert.Equal(t, model.FailureList{"no song data"}, je.Failures)
	assert.Len(t, je.StepExecutions, 1)
	assert.Equal(t, 1, se.ExitStatus.ExitCode())
}

func TestFailureListValueScan(t *testing.T) {
	v, err := model.FailureList{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	var fl model.FailureList
	require.NoError(t, fl.Scan([]byte(`["x"]`)))
	assert.Equal(t, model.FailureList{"x"}, fl)
	require.NoError(t, fl.Scan(nil))
	assert.Empty(t, fl)
	assert.Error(t, fl.Scan(42))
}

func TestJobParametersValueScan(t *testing.T) {
	v, err := model.JobParameters{"output": "/out", "input": "/in"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"input":"/in","output":"/out"}`, v)

	var jp model.JobParameters
	require.NoError(t, jp.Scan(`{"publish_mode":"staged"}`))
	assert.Equal(t, "staged", jp["publish_mode"])
	assert.Equal(t, []string{"publish_mode"}, jp.Keys())
}
