package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ProbeBuildResource exposes buildResource for testing.
func ProbeBuildResource(cfg Config) (*resource.Resource, error) {
	return buildResource(cfg)
}

// ProbeSampled reports whether the sampler chosen for cfg samples a root
// span with the given trace id.
func ProbeSampled(cfg Config, id trace.TraceID) bool {
	result := selectSampler(cfg).ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       id,
		Name:          "probe",
	})

	return result.Decision == sdktrace.RecordAndSample
}

// ProbeCollectorOptions returns the number of trace and metric exporter
// options built for cfg, and whether export is enabled at all.
func ProbeCollectorOptions(cfg Config) (traceOpts, metricOpts int, enabled bool) {
	target, ok := collectorFor(cfg)
	if !ok {
		return 0, 0, false
	}

	return len(target.traceOptions()), len(target.metricOptions()), true
}

// ProbeBoundedShutdown exposes boundedShutdown for testing.
func ProbeBoundedShutdown(timeoutSec int, shutdowns ...func(ctx context.Context) error) func(ctx context.Context) error {
	fns := make([]shutdownFunc, len(shutdowns))
	for i, fn := range shutdowns {
		fns[i] = fn
	}

	return boundedShutdown(timeoutSec, fns...)
}
