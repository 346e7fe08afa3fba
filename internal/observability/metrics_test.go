package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRequest("/api/v1/search", "GET", "200", 10*time.Millisecond)
	m.RecordRequest("/api/v1/search", "GET", "200", 20*time.Millisecond)
	m.RecordSearch(true, 3, time.Millisecond)
	m.RecordLLMCall(errors.New("boom"), time.Second)
	m.RecordLLMCall(nil, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/search", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("success")))

	// Registering twice against the same registry reuses the collectors.
	again := NewMetrics(reg)
	again.RecordRequest("/api/v1/search", "GET", "200", time.Millisecond)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/search", "GET", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", "200", time.Millisecond)
	m.RecordSearch(false, 0, time.Millisecond)
	m.RecordLLMCall(nil, time.Millisecond)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "debug")
	reqCtx := NewRequestContextWithID(logger, "req-1", "/api/v1/chat/message")
	reqCtx.UserID = 7
	ctx := WithRequestContext(context.Background(), reqCtx)

	Logger(ctx).Info("chat answered", slog.Int("sources", 2))
	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":7`)
	assert.Contains(t, out, `"sources":2`)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Same(t, slog.Default(), Logger(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
