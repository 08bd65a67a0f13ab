package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/songplays/pkg/batch/core/config"
	metrics "github.com/tigerroll/songplays/pkg/batch/core/metrics"
	logger "github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// NewMetricRecorder returns a PrometheusRecorder when metrics are enabled, otherwise a no-op recorder.
func NewMetricRecorder(cfg *config.Config) metrics.MetricRecorder {
	if !cfg.Songplays.Metrics.Enabled {
		logger.Debugf("Metrics are disabled. Using NoOpMetricRecorder.")
		return metrics.NewNoOpMetricRecorder()
	}
	return NewPrometheusRecorder(cfg)
}

// TracerParams defines the dependencies for NewTracer.
type TracerParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
}

// NewTracer returns an OpenTelemetryTracer when tracing is enabled, otherwise a no-op tracer.
// The exporter is shut down when the application stops.
func NewTracer(p TracerParams) (metrics.Tracer, error) {
	tracingCfg := p.Config.Songplays.Tracing
	if !tracingCfg.Enabled {
		logger.Debugf("Tracing is disabled. Using NoOpTracer.")
		return metrics.NewNoOpTracer(), nil
	}
	tracer, err := NewOpenTelemetryTracer(context.Background(), tracingCfg)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debugf("Shutting down OpenTelemetry tracer provider.")
			return tracer.Shutdown(ctx)
		},
	})
	return tracer, nil
}

// Module is an Fx module that provides the MetricRecorder and Tracer selected by configuration.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
