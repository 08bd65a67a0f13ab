package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	"github.com/tigerroll/songplays/pkg/batch/listener/logging"
	logger "github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestLoggingJobListener_Summary(t *testing.T) {
	buf := captureLog(t)
	ctx := context.Background()

	je := model.NewJobExecution("songplaysJob", model.JobParameters{"output": "/out", "input": "/in"})
	je.MarkAsStarted()
	se := model.NewStepExecution(je, "eventStep")
	se.MarkAsStarted()
	se.ReadCount, se.FilterCount, se.WriteCount = 10, 4, 6
	se.MarkAsCompleted()
	je.MarkAsCompleted()

	l := logging.NewLoggingJobListener()
	l.BeforeJob(ctx, je)
	l.AfterJob(ctx, je)

	out := buf.String()
	assert.Contains(t, out, "Params: [input=/in, output=/out]")
	assert.Contains(t, out, "read=10 filtered=4 written=6")
	assert.Contains(t, out, "Status: COMPLETED")
}

func TestLoggingStepListener_Failure(t *testing.T) {
	buf := captureLog(t)

	je := model.NewJobExecution("songplaysJob", nil)
	se := model.NewStepExecution(je, "factStep")
	se.MarkAsStarted()
	se.MarkAsFailed(errors.New("songs table missing"))

	logging.NewLoggingStepListener().AfterStep(context.Background(), se)
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "songs table missing")
}
