package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	config "github.com/tigerroll/songplays/pkg/batch/core/config"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/songplays/pkg/batch/core/metrics"
	exception "github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// A batch run is short-lived, so metrics are delivered to a Pushgateway on Flush
// instead of being scraped.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	jobName  string

	pushgatewayURL string
	pushJobName    string

	// Job Metrics
	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	// Step Metrics
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	stepReadCount       *prometheus.CounterVec
	stepFilterCount     *prometheus.CounterVec

	// Table Metrics
	tableRowsWritten       *prometheus.CounterVec
	tablePartitionsWritten *prometheus.CounterVec

	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder(cfg *config.Config) *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry:       registry,
		jobName:        cfg.Songplays.Pipeline.JobName,
		pushgatewayURL: cfg.Songplays.Metrics.PushgatewayURL,
		pushJobName:    cfg.Songplays.Metrics.PushJobName,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_job_duration_seconds",
			Help:    "Duration of batch job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status", "exit_status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_job_status_total",
			Help: "Total number of batch job executions by status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_step_duration_seconds",
			Help:    "Duration of batch step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status", "exit_status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_status_total",
			Help: "Total number of batch step executions by status.",
		}, []string{"job_name", "step_name", "status"}),
		stepReadCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_read_total",
			Help: "Total records read by step.",
		}, []string{"job_name", "step_name"}),
		stepFilterCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_filter_total",
			Help: "Total records filtered by step.",
		}, []string{"job_name", "step_name"}),
		tableRowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_table_rows_written_total",
			Help: "Total rows written per output table.",
		}, []string{"job_name", "table"}),
		tablePartitionsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_table_partitions_written_total",
			Help: "Total partitions written per output table.",
		}, []string{"job_name", "table"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_operation_duration_seconds",
			Help:    "Duration of named pipeline operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "operation", "table"}),
	}

	registry.MustRegister(r.jobDurationSeconds)
	registry.MustRegister(r.jobStatusCounter)
	registry.MustRegister(r.stepDurationSeconds)
	registry.MustRegister(r.stepStatusCounter)
	registry.MustRegister(r.stepReadCount)
	registry.MustRegister(r.stepFilterCount)
	registry.MustRegister(r.tableRowsWritten)
	registry.MustRegister(r.tablePartitionsWritten)
	registry.MustRegister(r.operationDurationSeconds)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordJobStart records the start of a JobExecution.
func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

// RecordJobEnd records the end of a JobExecution.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()

	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	r.jobDurationSeconds.WithLabelValues(
		execution.JobName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)

	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

// RecordStepStart records the start of a StepExecution.
func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	r.stepStatusCounter.WithLabelValues(r.stepJobName(execution), execution.StepName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Step '%s' started.", execution.StepName)
}

// RecordStepEnd records the end of a StepExecution.
func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	jobName := r.stepJobName(execution)

	r.stepStatusCounter.WithLabelValues(jobName, execution.StepName, execution.Status.String()).Inc()
	r.stepDurationSeconds.WithLabelValues(
		jobName,
		execution.StepName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)

	logger.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", execution.StepName, duration)
}

func (r *PrometheusRecorder) stepJobName(execution *model.StepExecution) string {
	if execution.JobExecution != nil {
		return execution.JobExecution.JobName
	}
	return r.jobName
}

// RecordItemRead records decoded input records.
func (r *PrometheusRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.stepReadCount.WithLabelValues(r.jobName, stepName).Add(float64(count))
}

// RecordItemFilter records dropped input records.
func (r *PrometheusRecorder) RecordItemFilter(ctx context.Context, stepName string, count int) {
	r.stepFilterCount.WithLabelValues(r.jobName, stepName).Add(float64(count))
}

// RecordTableWrite records a written output table.
func (r *PrometheusRecorder) RecordTableWrite(ctx context.Context, table string, rows int, partitions int) {
	r.tableRowsWritten.WithLabelValues(r.jobName, table).Add(float64(rows))
	r.tablePartitionsWritten.WithLabelValues(r.jobName, table).Add(float64(partitions))
}

// RecordDuration records the execution time of a named operation.
// The "table" tag is used as a label when present.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(r.jobName, name, tags["table"]).Observe(duration.Seconds())
}

// Flush pushes the registry to the configured Pushgateway. Without a URL it is a no-op.
func (r *PrometheusRecorder) Flush(ctx context.Context) error {
	if r.pushgatewayURL == "" {
		return nil
	}
	pusher := push.New(r.pushgatewayURL, r.pushJobName).
		Gatherer(r.registry).
		Grouping("pipeline", r.jobName)
	if err := pusher.PushContext(ctx); err != nil {
		return exception.NewBatchError("metrics", "failed to push metrics to Pushgateway", err, false, true)
	}
	logger.Debugf("Metrics: pushed to '%s' as job '%s'.", r.pushgatewayURL, r.pushJobName)
	return nil
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
