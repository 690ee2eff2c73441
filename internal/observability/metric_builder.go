package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instrument names an instrument and its description and unit.
type instrument struct {
	name string
	desc string
	unit string
}

// metricBuilder creates instruments on one meter and keeps the first failure,
// so a metrics set is built with a single error check at the end.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(in instrument) metric.Int64Counter {
	c, err := b.meter.Int64Counter(in.name, metric.WithDescription(in.desc), metric.WithUnit(in.unit))
	b.fail("create "+in.name, err)

	return c
}

// histogram uses the SDK default buckets when bounds is empty.
func (b *metricBuilder) histogram(in instrument, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(in.desc), metric.WithUnit(in.unit)}
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(in.name, opts...)
	b.fail("create "+in.name, err)

	return h
}

func (b *metricBuilder) upDownCounter(in instrument) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(in.name, metric.WithDescription(in.desc), metric.WithUnit(in.unit))
	b.fail("create "+in.name, err)

	return c
}

func (b *metricBuilder) gauge(in instrument) metric.Int64ObservableGauge {
	g, err := b.meter.Int64ObservableGauge(in.name, metric.WithDescription(in.desc), metric.WithUnit(in.unit))
	b.fail("create "+in.name, err)

	return g
}

func (b *metricBuilder) observableCounter(in instrument) metric.Int64ObservableCounter {
	c, err := b.meter.Int64ObservableCounter(in.name, metric.WithDescription(in.desc), metric.WithUnit(in.unit))
	b.fail("create "+in.name, err)

	return c
}

// observe registers callback over observables. It is skipped once any
// instrument failed, since the callback would reference a nil instrument.
func (b *metricBuilder) observe(set string, callback metric.Callback, observables ...metric.Observable) {
	if b.err != nil {
		return
	}

	_, err := b.meter.RegisterCallback(callback, observables...)
	b.fail("register "+set+" metrics callback", err)
}

func (b *metricBuilder) fail(op string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("%s: %w", op, err)
	}
}
