package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/chartfang/pkg/observability"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "chartfang", "test", observability.ModeServe))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.InfoContext(ctx, "chart built")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "chartfang", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "serve", record["mode"])
}

func TestTracingHandler_NoSpanNoTraceAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true

	observability.NewLogger(&buf, cfg).Info("plain")

	record := decodeRecord(t, &buf)
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "env")
	assert.Equal(t, "cli", record["mode"])
}

func TestTracingHandler_GroupKeepsServiceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true

	observability.NewLogger(&buf, cfg).WithGroup("fetch").Info("span", "week", 3)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "chartfang", record["service"])

	group, ok := record["fetch"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3.0, group["week"], 1e-9)
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	logger := observability.NewLogger(&buf, cfg)
	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := observability.ParseLogLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := observability.ParseLogLevel("loud")
	require.ErrorIs(t, err, observability.ErrInvalidLogLevel)
}
