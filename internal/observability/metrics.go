package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrOp     = "op"
	attrStatus = "status"
)

var (
	requestsTotal    = instrument{"incrkit.requests.total", "Total number of requests", "{request}"}
	requestDuration  = instrument{"incrkit.request.duration.seconds", "Request duration in seconds", "s"}
	errorsTotal      = instrument{"incrkit.errors.total", "Total number of errors", "{error}"}
	inflightRequests = instrument{"incrkit.inflight.requests", "Number of in-flight requests", "{request}"}
)

// Request outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 100µs to 60s: single report renders are
// sub-millisecond, full workload runs take seconds.
var durationBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// REDMetrics holds the OTel instruments for Rate, Error, Duration metrics.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &REDMetrics{
		requestsTotal:    b.counter(requestsTotal),
		requestDuration:  b.histogram(requestDuration, durationBucketBoundaries...),
		errorsTotal:      b.counter(errorsTotal),
		inflightRequests: b.upDownCounter(inflightRequests),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRequest records a completed request with its operation, status, and duration.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// Track starts an in-flight request and returns a func that records its
// outcome from err when the request ends.
func (rm *REDMetrics) Track(ctx context.Context, op string) func(err error) {
	start := time.Now()
	done := rm.TrackInflight(ctx, op)

	return func(err error) {
		done()

		status := StatusOK
		if err != nil {
			status = StatusError
		}

		rm.RecordRequest(ctx, op, status, time.Since(start))
	}
}
