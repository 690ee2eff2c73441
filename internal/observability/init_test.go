package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/incrkit/internal/observability"
)

func TestInit_NoEndpointUsesNoop(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(context.Background(), observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
}

func TestBuildResource_Attributes(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "dev"
	cfg.Mode = observability.ModeMCP

	res, err := observability.ProbeBuildResource(cfg)
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	assert.Equal(t, "incrkit", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, "mcp", attrs["app.mode"])
}

func probeTraceID(t *testing.T) trace.TraceID {
	t.Helper()

	id, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	return id
}

func TestSelectSampler_DefaultSamples(t *testing.T) {
	t.Parallel()

	assert.True(t, observability.ProbeSampled(observability.DefaultConfig(), probeTraceID(t)))
}

func TestSelectSampler_TinyRatioDrops(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.SampleRatio = 1e-12

	assert.False(t, observability.ProbeSampled(cfg, probeTraceID(t)))
}

func TestCollectorOptions(t *testing.T) {
	t.Parallel()

	_, _, enabled := observability.ProbeCollectorOptions(observability.DefaultConfig())
	assert.False(t, enabled)

	cfg := observability.DefaultConfig()
	cfg.OTLPEndpoint = "localhost:4317"

	traceOpts, metricOpts, enabled := observability.ProbeCollectorOptions(cfg)
	require.True(t, enabled)
	assert.Equal(t, 1, traceOpts)
	assert.Equal(t, 1, metricOpts)

	cfg.OTLPInsecure = true
	cfg.OTLPHeaders = map[string]string{"authorization": "token"}

	traceOpts, metricOpts, _ = observability.ProbeCollectorOptions(cfg)
	assert.Equal(t, 3, traceOpts)
	assert.Equal(t, 3, metricOpts)
}

func TestBoundedShutdown_JoinsErrorsUnderDeadline(t *testing.T) {
	t.Parallel()

	errFirst := errors.New("first")

	var sawDeadline bool

	shutdown := observability.ProbeBoundedShutdown(0,
		func(context.Context) error { return errFirst },
		func(ctx context.Context) error {
			_, sawDeadline = ctx.Deadline()

			return nil
		},
	)

	err := shutdown(context.Background())
	require.ErrorIs(t, err, errFirst)
	assert.True(t, sawDeadline)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t,
		map[string]string{"a": "1", "b": "2"},
		observability.ParseOTLPHeaders(" a=1, b = 2 ,junk"),
	)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	level, err := observability.ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = observability.ParseLogLevel("loud")
	require.Error(t, err)
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "test-svc", "test", observability.ModeCLI))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	logger.InfoContext(trace.ContextWithSpanContext(context.Background(), sc), "test message")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "test-svc", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "cli", record["mode"])
}

func TestNewLogger_JSONWithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true

	observability.NewLogger(&buf, cfg).WithGroup("workload").Info("done", slog.Int("workers", 4))

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "incrkit", record["service"])
	assert.NotContains(t, record, "trace_id")

	group, ok := record["workload"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 4.0, group["workers"], 0)
}

func TestNewLogger_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	observability.NewLogger(&buf, cfg).Info("hidden")

	assert.Empty(t, buf.String())
}
