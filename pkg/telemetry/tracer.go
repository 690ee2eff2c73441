package telemetry

import (
	"time"
)

// Tracer owns one ring and one counter table for a pipeline run.
// All methods are safe for concurrent use. A nil *Tracer records nothing.
type Tracer struct {
	start      time.Time
	now        func() time.Time
	counters   Counters
	ring       Ring
	callCounts bool
	disabled   bool
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithClock replaces time.Now. The tracer's start time is read from it once.
func WithClock(now func() time.Time) Option {
	return func(t *Tracer) {
		t.now = now
	}
}

// WithCallCounts toggles the per-id call counter that every [Tracer.Add]
// family call bumps under [StageMethodCall]. Enabled by default.
func WithCallCounts(enabled bool) Option {
	return func(t *Tracer) {
		t.callCounts = enabled
	}
}

// WithEnabled turns recording on or off. A disabled tracer still renders.
func WithEnabled(enabled bool) Option {
	return func(t *Tracer) {
		t.disabled = !enabled
	}
}

// New creates a Tracer whose start time is the current clock reading.
func New(opts ...Option) *Tracer {
	t := &Tracer{
		now:        time.Now,
		callCounts: true,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.start = t.now()

	return t
}

// Start returns the wall-clock time event offsets are relative to.
func (t *Tracer) Start() time.Time {
	if t == nil {
		return time.Time{}
	}

	return t.start
}

// Add records an event for id.
func (t *Tracer) Add(id Stage) { t.record(Encode(int(id), 0, false)) }

// AddValue records an event for id carrying a numeric value.
func (t *Tracer) AddValue(id Stage, value int) { t.record(Encode(int(id), value, false)) }

// AddMapped records an event for id whose value is itself a named id.
func (t *Tracer) AddMapped(id, value Stage) { t.record(Encode(int(id), int(value), true)) }

// AddKey records a pre-encoded key.
func (t *Tracer) AddKey(k Key) { t.record(k) }

// MethodEntry tags id with [StageMethodEntry].
func (t *Tracer) MethodEntry(id Stage) { t.AddMapped(id, StageMethodEntry) }

// MethodExit tags id with [StageMethodExit]. Exits are not call-counted.
func (t *Tracer) MethodExit(id Stage) { t.AddMapped(id, StageMethodExit) }

// Trace records an entry for id and returns a func that records the exit.
//
//	defer tr.Trace(StageParse)()
func (t *Tracer) Trace(id Stage) func() {
	t.MethodEntry(id)

	return func() { t.MethodExit(id) }
}

func (t *Tracer) record(k Key) {
	if t == nil || t.disabled {
		return
	}

	t.ring.Add(t.now().Sub(t.start), k)

	if !t.callCounts {
		return
	}

	if k.Mapped() && k.Value() == int(StageMethodExit) {
		return
	}

	t.counters.Increment(Encode(int(StageMethodCall), k.ID(), true))
}

// IncrementCount adds 1 to the plain counter for id.
func (t *Tracer) IncrementCount(id Stage) { t.AddCount(Encode(int(id), 0, false), 1) }

// IncrementValue adds 1 to the counter for the (id, value) pair.
func (t *Tracer) IncrementValue(id Stage, value int, mapped bool) {
	t.AddCount(Encode(int(id), value, mapped), 1)
}

// DecrementCount subtracts 1 from the plain counter for id.
func (t *Tracer) DecrementCount(id Stage) { t.AddCount(Encode(int(id), 0, false), -1) }

// DecrementValue subtracts 1 from the counter for the (id, value) pair.
func (t *Tracer) DecrementValue(id Stage, value int, mapped bool) {
	t.AddCount(Encode(int(id), value, mapped), -1)
}

// AddCount adds delta to the counter for k.
func (t *Tracer) AddCount(k Key, delta int64) {
	if t == nil || t.disabled {
		return
	}

	t.counters.Add(k, delta)
}

// Count returns the current counter value for k.
func (t *Tracer) Count(k Key) int64 {
	if t == nil {
		return 0
	}

	return t.counters.Get(k)
}

// Counts returns a sorted snapshot of all counters.
func (t *Tracer) Counts() []Count {
	if t == nil {
		return nil
	}

	return t.counters.Snapshot()
}

// Events returns the ring contents oldest first.
func (t *Tracer) Events() []Event {
	if t == nil {
		return nil
	}

	return t.ring.Events()
}

// Reset clears the ring and the counters and restarts the clock.
// It must not run concurrently with recording.
func (t *Tracer) Reset() {
	t.ring.Reset()
	t.counters.Reset()
	t.start = t.now()
}
