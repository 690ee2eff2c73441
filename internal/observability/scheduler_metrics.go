package observability

import (
	"context"
	"math"
	runtimemetrics "runtime/metrics"

	"go.opentelemetry.io/otel/metric"
)

var (
	runtimeGoroutines        = instrument{"incrkit.runtime.goroutines", "Current number of live goroutines", "{goroutine}"}
	runtimeThreads           = instrument{"incrkit.runtime.threads", "Current number of OS threads created by the Go runtime", "{thread}"}
	runtimeGoroutinesCreated = instrument{"incrkit.runtime.goroutines.created", "Total goroutines created since process start", "{goroutine}"}
	runtimeHeapObjects       = instrument{"incrkit.runtime.heap.objects", "Live and unswept heap objects", "{object}"}
	runtimeGCCycles          = instrument{"incrkit.runtime.gc.cycles", "Completed GC cycles", "{cycle}"}
)

const (
	sampleGoroutines        = "/sched/goroutines:goroutines"
	sampleThreads           = "/sched/threads:threads"
	sampleGoroutinesCreated = "/sched/goroutines-created:goroutines"
	sampleHeapObjects       = "/gc/heap/objects:objects"
	sampleGCCycles          = "/gc/cycles/total:gc-cycles"
)

// SchedulerMetrics exposes Go runtime scheduler and GC metrics as OTel
// instruments. Weak interner entries only disappear after a GC cycle, so GC
// progress is reported next to the interner gauges. Samples the running Go
// version does not support are skipped.
type SchedulerMetrics struct {
	goroutines        metric.Int64ObservableGauge
	threads           metric.Int64ObservableGauge
	goroutinesCreated metric.Int64ObservableCounter
	heapObjects       metric.Int64ObservableGauge
	gcCycles          metric.Int64ObservableCounter
}

// NewSchedulerMetrics creates runtime/metrics backed instruments on mt.
func NewSchedulerMetrics(mt metric.Meter) (*SchedulerMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &SchedulerMetrics{
		goroutines:        b.gauge(runtimeGoroutines),
		threads:           b.gauge(runtimeThreads),
		goroutinesCreated: b.observableCounter(runtimeGoroutinesCreated),
		heapObjects:       b.gauge(runtimeHeapObjects),
		gcCycles:          b.observableCounter(runtimeGCCycles),
	}

	b.observe("scheduler", sm.observe,
		sm.goroutines, sm.threads, sm.goroutinesCreated, sm.heapObjects, sm.gcCycles)

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

func (sm *SchedulerMetrics) observe(_ context.Context, obs metric.Observer) error {
	samples := []runtimemetrics.Sample{
		{Name: sampleGoroutines},
		{Name: sampleThreads},
		{Name: sampleGoroutinesCreated},
		{Name: sampleHeapObjects},
		{Name: sampleGCCycles},
	}

	runtimemetrics.Read(samples)

	for idx := range samples {
		val, ok := sampleInt64Value(samples[idx].Value)
		if !ok {
			continue
		}

		switch samples[idx].Name {
		case sampleGoroutines:
			obs.ObserveInt64(sm.goroutines, val)
		case sampleThreads:
			obs.ObserveInt64(sm.threads, val)
		case sampleGoroutinesCreated:
			obs.ObserveInt64(sm.goroutinesCreated, val)
		case sampleHeapObjects:
			obs.ObserveInt64(sm.heapObjects, val)
		case sampleGCCycles:
			obs.ObserveInt64(sm.gcCycles, val)
		}
	}

	return nil
}

// sampleInt64Value extracts an int64 from a runtime/metrics value.
func sampleInt64Value(val runtimemetrics.Value) (int64, bool) {
	switch val.Kind() {
	case runtimemetrics.KindUint64:
		u := val.Uint64()
		if u > uint64(math.MaxInt64) {
			return math.MaxInt64, true
		}

		return int64(u), true
	case runtimemetrics.KindFloat64:
		return int64(val.Float64()), true
	case runtimemetrics.KindBad, runtimemetrics.KindFloat64Histogram:
		return 0, false
	default:
		return 0, false
	}
}
