package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	config "github.com/tigerroll/songplays/pkg/batch/core/config"
	model "github.com/tigerroll/songplays/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/songplays/pkg/batch/core/metrics"
	exception "github.com/tigerroll/songplays/pkg/batch/support/util/exception"
)

func TestPrometheusRecorder_RecordsJobAndTables(t *testing.T) {
	cfg := config.NewConfig()
	r := NewPrometheusRecorder(cfg)
	ctx := context.Background()

	je := model.NewJobExecution("songplaysJob", model.JobParameters{})
	je.MarkAsStarted()
	r.RecordJobStart(ctx, je)

	se := model.NewStepExecution(je, "catalogStep")
	se.MarkAsStarted()
	r.RecordStepStart(ctx, se)
	r.RecordItemRead(ctx, "catalogStep", 5)
	r.RecordItemFilter(ctx, "eventStep", 2)
	r.RecordTableWrite(ctx, "songs", 5, 3)
	r.RecordDuration(ctx, "publish", 10*time.Millisecond, map[string]string{"table": "songs"})
	se.MarkAsCompleted()
	r.RecordStepEnd(ctx, se)

	je.MarkAsCompleted()
	r.RecordJobEnd(ctx, je)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.stepReadCount.WithLabelValues("songplaysJob", "catalogStep")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.stepFilterCount.WithLabelValues("songplaysJob", "eventStep")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.tableRowsWritten.WithLabelValues("songplaysJob", "songs")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.tablePartitionsWritten.WithLabelValues("songplaysJob", "songs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobStatusCounter.WithLabelValues("songplaysJob", "COMPLETED")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.jobDurationSeconds))
}

func TestPrometheusRecorder_FlushWithoutGatewayIsNoOp(t *testing.T) {
	r := NewPrometheusRecorder(config.NewConfig())
	assert.NoError(t, r.Flush(context.Background()))
}

func TestPrometheusRecorder_FlushPushesToGateway(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Contains(t, req.URL.Path, "/metrics/job/songplays")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.Songplays.Metrics.PushgatewayURL = srv.URL
	r := NewPrometheusRecorder(cfg)
	r.RecordTableWrite(context.Background(), "users", 1, 1)

	require.NoError(t, r.Flush(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPrometheusRecorder_FlushReportsGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.Songplays.Metrics.PushgatewayURL = srv.URL
	err := NewPrometheusRecorder(cfg).Flush(context.Background())
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
}

func TestNewMetricRecorder_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Songplays.Metrics.Enabled = false
	_, ok := NewMetricRecorder(cfg).(*coremetrics.NoOpMetricRecorder)
	assert.True(t, ok)
}

func TestOpenTelemetryTracer_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := NewOpenTelemetryTracerWithProcessor("songplays-test", recorder)
	ctx := context.Background()

	je := model.NewJobExecution("songplaysJob", model.JobParameters{})
	jobCtx, endJob := tracer.StartJobSpan(ctx, je)

	se := model.NewStepExecution(je, "factStep")
	stepCtx, endStep := tracer.StartStepSpan(jobCtx, se)
	tracer.RecordEvent(stepCtx, "table.written", map[string]interface{}{"table": "songplays", "rows": 1})
	tracer.RecordError(stepCtx, "writer", exception.NewWriteError("writer", "disk full", errors.New("enospc")))
	se.MarkAsFailed(errors.New("boom"))
	endStep()

	je.MarkAsFailed(errors.New("boom"))
	endJob()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "step factStep", spans[0].Name())
	assert.Equal(t, "job songplaysJob", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	require.Len(t, spans[0].Events(), 2)
	assert.Equal(t, "table.written", spans[0].Events()[0].Name)

	require.NoError(t, tracer.Shutdown(ctx))
}

var _ sdktrace.SpanProcessor = (*tracetest.SpanRecorder)(nil)
