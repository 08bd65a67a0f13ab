// Package logging provides job and step listeners that log execution progress.
package logging

import (
	"context"
	"strings"
	"time"

	port "github.com/tigerroll/songplays/pkg/batch/core/application/port"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

// LoggingJobListener logs the parameters of a run and a per-step summary once it ends.
type LoggingJobListener struct{}

func NewLoggingJobListener() port.JobExecutionListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	params := make([]string, 0, len(jobExecution.Parameters))
	for _, k := range jobExecution.Parameters.Keys() {
		params = append(params, k+"="+jobExecution.Parameters[k])
	}
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, Params: [%s]", jobExecution.JobName, jobExecution.ID, strings.Join(params, ", "))
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, se := range jobExecution.StepExecutions {
		logger.Infof("JobExecutionListener: step %-14s %-9s read=%d filtered=%d written=%d (%s)",
			se.StepName, se.Status, se.ReadCount, se.FilterCount, se.WriteCount, se.Duration().Round(time.Millisecond))
	}
	if jobExecution.Status == model.BatchStatusCompleted {
		logger.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s", jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus)
		return
	}
	logger.Warnf("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s, Failures: %s",
		jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus, strings.Join(jobExecution.Failures, "; "))
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

type LoggingStepListener struct{}

func NewLoggingStepListener() port.StepExecutionListener {
	return &LoggingStepListener{}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Debugf("StepExecutionListener: BeforeStep - StepName: %s, ID: %s", stepExecution.StepName, stepExecution.ID)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	if stepExecution.Status == model.BatchStatusFailed {
		logger.Errorf("StepExecutionListener: AfterStep - StepName: %s, Status: %s, Failures: %s",
			stepExecution.StepName, stepExecution.Status, strings.Join(stepExecution.Failures, "; "))
		return
	}
	logger.Infof("StepExecutionListener: AfterStep - StepName: %s, Status: %s, Read: %d, Filtered: %d, Written: %d",
		stepExecution.StepName, stepExecution.Status, stepExecution.ReadCount, stepExecution.FilterCount, stepExecution.WriteCount)
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)
