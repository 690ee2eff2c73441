package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	tracerName = "incrkit"
	meterName  = "incrkit"
)

// Providers holds the initialized observability providers.
type Providers struct {
	// Tracer is the named tracer for creating spans.
	Tracer trace.Tracer

	// Meter is the named meter for creating instruments.
	Meter metric.Meter

	// Logger is the context-aware structured logger.
	Logger *slog.Logger

	// Shutdown flushes all pending telemetry and releases resources.
	// Must be called before process exit.
	Shutdown func(ctx context.Context) error
}

// Init initializes OpenTelemetry tracing, metrics, and structured logging and
// installs them as the global providers. When OTLPEndpoint is empty, no-op
// providers are used with zero export overhead.
func Init(ctx context.Context, cfg Config) (Providers, error) {
	res, err := buildResource(cfg)
	if err != nil {
		return Providers{}, err
	}

	tp, tpShutdown, err := buildTracerProvider(ctx, cfg, res)
	if err != nil {
		return Providers{}, fmt.Errorf("build tracer provider: %w", err)
	}

	mp, mpShutdown, err := buildMeterProvider(ctx, cfg, res)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("build meter provider: %w", err), tpShutdown(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return Providers{
		Tracer:   tp.Tracer(tracerName),
		Meter:    mp.Meter(meterName),
		Logger:   buildLogger(cfg),
		Shutdown: boundedShutdown(cfg.ShutdownTimeoutSec, tpShutdown, mpShutdown),
	}, nil
}

// boundedShutdown runs every shutdown under one deadline of timeoutSec
// seconds, falling back to the default timeout when it is not positive.
func boundedShutdown(timeoutSec int, shutdowns ...shutdownFunc) func(ctx context.Context) error {
	if timeoutSec <= 0 {
		timeoutSec = defaultShutdownTimeoutSec
	}

	return func(ctx context.Context) error {
		deadlineCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
		defer cancel()

		errs := make([]error, 0, len(shutdowns))
		for _, shutdown := range shutdowns {
			errs = append(errs, shutdown(deadlineCtx))
		}

		return errors.Join(errs...)
	}
}

func buildResource(cfg Config) (*resource.Resource, error) {
	kv := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		kv = append(kv, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		kv = append(kv, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.Mode != "" {
		kv = append(kv, attribute.String("app.mode", string(cfg.Mode)))
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(kv...),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}

type shutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error { return nil }

// collector is the OTLP gRPC endpoint shared by the trace and metric exporters.
type collector struct {
	endpoint string
	insecure bool
	headers  map[string]string
}

// collectorFor reports false when export is disabled.
func collectorFor(cfg Config) (collector, bool) {
	if cfg.OTLPEndpoint == "" {
		return collector{}, false
	}

	return collector{endpoint: cfg.OTLPEndpoint, insecure: cfg.OTLPInsecure, headers: cfg.OTLPHeaders}, true
}

func (c collector) traceOptions() []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.endpoint)}

	if c.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(c.headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(c.headers))
	}

	return opts
}

func (c collector) metricOptions() []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(c.endpoint)}

	if c.insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	if len(c.headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(c.headers))
	}

	return opts
}

func buildTracerProvider(
	ctx context.Context, cfg Config, res *resource.Resource,
) (trace.TracerProvider, shutdownFunc, error) {
	target, ok := collectorFor(cfg)
	if !ok {
		return nooptrace.NewTracerProvider(), noopShutdown, nil
	}

	exporter, err := otlptracegrpc.New(ctx, target.traceOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(selectSampler(cfg)),
	)

	return tp, tp.Shutdown, nil
}

// selectSampler honors the parent decision; root spans use SampleRatio, or
// are always sampled when it is zero.
func selectSampler(cfg Config) sdktrace.Sampler {
	root := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 {
		root = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	return sdktrace.ParentBased(root)
}

func buildMeterProvider(
	ctx context.Context,
	cfg Config,
	res *resource.Resource,
) (metric.MeterProvider, shutdownFunc, error) {
	target, ok := collectorFor(cfg)
	if !ok {
		return noopmetric.NewMeterProvider(), noopShutdown, nil
	}

	exporter, err := otlpmetricgrpc.New(ctx, target.metricOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.ExportInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.ExportInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	return mp, mp.Shutdown, nil
}

// ParseOTLPHeaders parses an OTLP headers string in "key=value,key=value"
// format. Returns nil for empty or invalid input.
func ParseOTLPHeaders(raw string) map[string]string {
	if raw == "" {
		return nil
	}

	result := make(map[string]string)

	for pair := range strings.SplitSeq(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}

		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
