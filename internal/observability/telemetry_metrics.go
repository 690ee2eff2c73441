package observability

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

var (
	telemetryCounter    = instrument{"incrkit.telemetry.counter", "Current value of a telemetry counter", "{count}"}
	telemetryRingEvents = instrument{"incrkit.telemetry.ring.events", "Events currently held in the trace ring", "{event}"}
)

const (
	attrKey   = "key"
	attrID    = "id"
	attrLabel = "label"
)

// TelemetryMetrics mirrors a tracer's counter table and ring occupancy as
// OTel gauges. Counters can go down, so they are gauges rather than counters.
type TelemetryMetrics struct {
	tracer   *telemetry.Tracer
	reporter *telemetry.Reporter

	counter    metric.Int64ObservableGauge
	ringEvents metric.Int64ObservableGauge
}

// NewTelemetryMetrics registers gauges over tracer, labelling each counter
// with its decoded id and the label reporter renders for it.
func NewTelemetryMetrics(mt metric.Meter, tracer *telemetry.Tracer, reporter *telemetry.Reporter) (*TelemetryMetrics, error) {
	b := newMetricBuilder(mt)

	tm := &TelemetryMetrics{
		tracer:     tracer,
		reporter:   reporter,
		counter:    b.gauge(telemetryCounter),
		ringEvents: b.gauge(telemetryRingEvents),
	}

	b.observe("telemetry", tm.observe, tm.counter, tm.ringEvents)

	if b.err != nil {
		return nil, b.err
	}

	return tm, nil
}

func (tm *TelemetryMetrics) observe(_ context.Context, obs metric.Observer) error {
	for _, c := range tm.tracer.Counts() {
		obs.ObserveInt64(tm.counter, c.Value, metric.WithAttributes(
			attribute.Int(attrKey, int(c.Key)),
			attribute.String(attrID, strconv.Itoa(c.Key.ID())),
			attribute.String(attrLabel, tm.reporter.Label(c.Key)),
		))
	}

	obs.ObserveInt64(tm.ringEvents, int64(len(tm.tracer.Events())))

	return nil
}
