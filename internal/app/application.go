// Package app wires the songplays job into an Fx application and runs it once.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"

	appJob "github.com/tigerroll/songplays/internal/job"
	gormAdapter "github.com/tigerroll/songplays/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/songplays/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/songplays/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/songplays/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/songplays/pkg/batch/adapter/storage"
	"github.com/tigerroll/songplays/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/songplays/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/songplays/pkg/batch/adapter/storage/s3"
	config "github.com/tigerroll/songplays/pkg/batch/core/config"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	jobRunner "github.com/tigerroll/songplays/pkg/batch/core/job/runner"
	"github.com/tigerroll/songplays/pkg/batch/core/metrics"
	infraMetrics "github.com/tigerroll/songplays/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/songplays/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/songplays/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/songplays/pkg/batch/listener/logging"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// Exit codes returned by RunApplication.
const (
	ExitOK     = 0
	ExitFailed = 1
)

// RunApplication loads the configuration, runs the songplays job once and
// returns the process exit code.
func RunApplication(appCtx context.Context, opts config.LoadOptions) int {
	cfg, err := config.LoadConfig(opts)
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		return ExitFailed
	}

	logger.SetLogLevel(cfg.Songplays.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Songplays.System.Logging.Level)

	app := fx.New(Options(appCtx, cfg)...)
	if err := app.Err(); err != nil {
		logger.Errorf("Failed to build application: %v", err)
		return ExitFailed
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return ExitFailed
	}

	signal := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warnf("Application did not stop cleanly: %v", err)
	}
	return signal.ExitCode
}

// Options returns the Fx options of the application for cfg.
func Options(appCtx context.Context, cfg *config.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(
			cfg,
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),
		logger.Module,
		config.Module,
		infraMetrics.Module,

		storage.Module,
		local.Module,
		s3.Module,
		gcs.Module,

		repositoryModule(cfg),
		logging.Module,
		jobRunner.Module,
		appJob.Module,

		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // launcher *jobRunner.SimpleJobLauncher
			"",              // job *appJob.SongplaysJob
			"",              // recorder metrics.MetricRecorder
			"",              // cfg *config.Config
			`name:"appCtx"`, // appCtx context.Context
		))),
	}
}

// repositoryModule selects the run metadata store. The SQL store brings the
// GORM resolver and every DB provider; the connection named by
// job_repository_db_ref decides which one is used.
func repositoryModule(cfg *config.Config) fx.Option {
	if cfg.Songplays.Infrastructure.JobRepositoryType == config.JobRepositorySQL {
		logger.Debugf("Using SQL job repository (db ref '%s').", cfg.Songplays.Infrastructure.JobRepositoryDBRef)
		return fx.Options(
			gormAdapter.Module,
			sqlite.Module,
			postgres.Module,
			mysql.Module,
			sql.Module,
		)
	}
	logger.Debugf("Using in-memory job repository.")
	return inmemory.Module
}

// startJobExecution is invoked by Fx to run the job once the application has started.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	launcher *jobRunner.SimpleJobLauncher,
	job *appJob.SongplaysJob,
	recorder metrics.MetricRecorder,
	cfg *config.Config,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				exitCode := ExitFailed
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in job execution: %v", r)
						exitCode = ExitFailed
					}
					logger.Infof("Requesting application shutdown after job completion.")
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()
				exitCode = runJob(appCtx, launcher, job, recorder, cfg)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

func runJob(ctx context.Context, launcher *jobRunner.SimpleJobLauncher, job *appJob.SongplaysJob, recorder metrics.MetricRecorder, cfg *config.Config) int {
	pipeline := cfg.Songplays.Pipeline
	params := model.JobParameters{
		"input":        pipeline.InputBase,
		"output":       pipeline.OutputBase,
		"publish_mode": string(pipeline.PublishMode),
		"run_at":       time.Now().UTC().Format(time.RFC3339),
	}

	logger.Infof("Starting job '%s': %s -> %s (%s).", job.JobName(), pipeline.InputBase, pipeline.OutputBase, pipeline.PublishMode)
	jobExecution, err := launcher.Launch(ctx, job, params)

	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if flushErr := recorder.Flush(flushCtx); flushErr != nil {
		logger.Warnf("Failed to flush metrics: %v", flushErr)
	}

	if err != nil {
		logger.Errorf("Job '%s' failed: %v", job.JobName(), err)
	}
	if jobExecution == nil {
		return ExitFailed
	}
	logger.Infof("Job '%s' (Execution ID: %s) finished with status: %s, ExitStatus: %s",
		job.JobName(), jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	return jobExecution.ExitStatus.ExitCode()
}
