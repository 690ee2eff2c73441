package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/incrkit/pkg/intern"
)

const attrInterner = "interner"

var (
	internHits      = instrument{"incrkit.intern.hits", "Interner lookups served from the cache", "{lookup}"}
	internMisses    = instrument{"incrkit.intern.misses", "Interner lookups that allocated a new handle", "{lookup}"}
	internPruned    = instrument{"incrkit.intern.pruned", "Collected interner entries removed", "{entry}"}
	internCancelled = instrument{"incrkit.intern.cancelled", "Interner calls aborted by cancellation", "{call}"}
	internBuckets   = instrument{"incrkit.intern.buckets", "Live interner hash buckets", "{bucket}"}
	internEntries   = instrument{"incrkit.intern.entries", "Weak entries held by the interner", "{entry}"}
)

// InternStatsSource is anything reporting interner statistics.
type InternStatsSource interface {
	Stats() intern.Stats
}

// InternMetrics exposes interner statistics as observable OTel instruments.
// Values are read from the source on each collection cycle.
type InternMetrics struct {
	source InternStatsSource
	attrs  metric.MeasurementOption

	hits      metric.Int64ObservableCounter
	misses    metric.Int64ObservableCounter
	pruned    metric.Int64ObservableCounter
	cancelled metric.Int64ObservableCounter
	buckets   metric.Int64ObservableGauge
	entries   metric.Int64ObservableGauge
}

// NewInternMetrics registers observable instruments for source, labelled
// with name so several interners can share one meter.
func NewInternMetrics(mt metric.Meter, name string, source InternStatsSource) (*InternMetrics, error) {
	b := newMetricBuilder(mt)

	im := &InternMetrics{
		source:    source,
		attrs:     metric.WithAttributes(attribute.String(attrInterner, name)),
		hits:      b.observableCounter(internHits),
		misses:    b.observableCounter(internMisses),
		pruned:    b.observableCounter(internPruned),
		cancelled: b.observableCounter(internCancelled),
		buckets:   b.gauge(internBuckets),
		entries:   b.gauge(internEntries),
	}

	b.observe("intern", im.observe, im.hits, im.misses, im.pruned, im.cancelled, im.buckets, im.entries)

	if b.err != nil {
		return nil, b.err
	}

	return im, nil
}

func (im *InternMetrics) observe(_ context.Context, obs metric.Observer) error {
	st := im.source.Stats()

	obs.ObserveInt64(im.hits, st.Hits, im.attrs)
	obs.ObserveInt64(im.misses, st.Misses, im.attrs)
	obs.ObserveInt64(im.pruned, st.Pruned, im.attrs)
	obs.ObserveInt64(im.cancelled, st.Cancelled, im.attrs)
	obs.ObserveInt64(im.buckets, int64(st.Buckets), im.attrs)
	obs.ObserveInt64(im.entries, int64(st.Entries), im.attrs)

	return nil
}
