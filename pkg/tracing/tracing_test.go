package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "geolatency", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTraceRefreshCycle(t *testing.T) {
	recorder := installRecorder(t)

	ctx, span := TraceRefreshCycle(context.Background(), "sub-1")
	AddSpanAttributes(ctx, SampleCountKey.Int(6))
	RecordError(ctx, errors.New("feed down"))
	assert.NotEmpty(t, TraceID(ctx))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "refresh.cycle", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[string]interface{}{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "sub-1", attrs["refresh.subscription_id"])
	assert.Equal(t, int64(6), attrs["feed.samples"])
}

func TestSpanHelpers(t *testing.T) {
	recorder := installRecorder(t)

	_, s1 := TraceFeedFetch(context.Background(), "simulated")
	s1.End()
	_, s2 := TraceHistoryQuery(context.Background(), "Binance-OKX", "24h")
	s2.End()
	_, s3 := TraceHTTPRequest(context.Background(), "GET", "/api/v1/history")
	s3.End()

	names := []string{}
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"feed.fetch", "history.query", "http.GET"}, names)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
}
