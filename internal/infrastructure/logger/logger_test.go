package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.log")

	l, err := New(config.LogConfig{Level: "info", Format: "json", Output: path}, "stockledger")
	require.NoError(t, err)
	l.Info("movement validated", zap.String("reference", "MVT-2026-000001"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"stockledger"`)
	assert.Contains(t, string(data), `"reference":"MVT-2026-000001"`)
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(config.LogConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")}, "")
	assert.Error(t, err)
}

func TestNewForEnvironment(t *testing.T) {
	dev, err := NewForEnvironment("development")
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod, err := NewForEnvironment("production")
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
}

func TestTee(t *testing.T) {
	primary, primaryLogs := observer.New(zapcore.InfoLevel)
	secondary, secondaryLogs := observer.New(zapcore.InfoLevel)

	l := Tee(zap.New(primary), secondary)
	l.Info("closing completed")

	assert.Equal(t, 1, primaryLogs.Len())
	assert.Equal(t, 1, secondaryLogs.Len())

	same := zap.New(primary)
	assert.Same(t, same, Tee(same))
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, Fields(ctx))
	assert.Equal(t, "", GetRequestID(ctx))
	assert.Equal(t, "", GetTraceID(ctx))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithOperator(ctx, "alice")

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
	assert.Equal(t, "alice", GetOperator(ctx))

	core, recorded := observer.New(zapcore.InfoLevel)
	For(ctx, zap.New(core)).Info("stock adjusted")

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "alice", fields["operator"])
}

func TestL_UsesLoggerFromContext(t *testing.T) {
	assert.NotPanics(t, func() { L(context.Background()).Info("dropped") })

	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(WithRequestID(context.Background(), "req-9"), zap.New(core))
	L(ctx).Warn("reservation expired")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "req-9", recorded.All()[0].ContextMap()["request_id"])
	assert.NotPanics(t, func() { For(ctx, nil).Info("nop") })
}
