package runner

import (
	"context"

	port "github.com/tigerroll/songplays/pkg/batch/core/application/port"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/songplays/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// SimpleJobLauncher creates a JobExecution for a job and runs it synchronously.
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
}

// NewSimpleJobLauncher creates a new SimpleJobLauncher.
func NewSimpleJobLauncher(jobRepository repository.JobRepository) *SimpleJobLauncher {
	return &SimpleJobLauncher{jobRepository: jobRepository}
}

// Launch saves a new JobExecution and runs job. The returned execution is
// never nil; it carries the final status even when an error is returned.
func (l *SimpleJobLauncher) Launch(ctx context.Context, job port.Job, params model.JobParameters) (*model.JobExecution, error) {
	jobExecution := model.NewJobExecution(job.JobName(), params)
	if err := l.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		jobExecution.MarkAsFailed(err)
		return jobExecution, exception.NewBatchError("launcher", "failed to save JobExecution", err, false, false)
	}
	logger.Debugf("JobLauncher: launching job '%s' (Execution ID: %s).", job.JobName(), jobExecution.ID)

	err := job.Run(ctx, jobExecution, params)
	return jobExecution, err
}
