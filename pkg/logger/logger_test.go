package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New("debug", "console")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("warn", "json")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud", "json")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}

func TestContextLogger_WithContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := NewContextLogger(zap.New(core))

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSubscriptionID(ctx, "sub-1")
	cl.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "sub-1", fields["subscription_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestContextLogger_LogHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := NewContextLogger(zap.New(core))
	ctx := WithTraceID(context.Background(), "trace-9")

	cl.LogRequest(ctx, "GET", "/api/v1/nodes", 200, 3)
	cl.LogError(ctx, errors.New("boom"), "fetch failed")
	cl.Sugar(ctx).Infow("cycle", "edges", 4)

	require.Equal(t, 3, logs.Len())
	entries := logs.All()
	assert.Equal(t, "http_request", entries[0].Message)
	assert.EqualValues(t, 200, entries[0].ContextMap()["status_code"])
	assert.Equal(t, "fetch failed", entries[1].Message)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Equal(t, "trace-9", entries[2].ContextMap()["trace_id"])
}
