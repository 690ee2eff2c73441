package telemetry

import (
	"sync/atomic"
	"time"
)

// RingCapacity is the number of events the ring retains.
const RingCapacity = 1024

// ringSlot holds one event. Timestamp and key are stored independently, so a
// reader racing a writer may observe a pair from two different writes.
type ringSlot struct {
	elapsed atomic.Int64
	key     atomic.Int32
}

// Event is one recorded ring entry.
type Event struct {
	Elapsed time.Duration
	Key     Key
}

// Ring is a fixed-capacity circular event log. Writers never block; once full,
// each write overwrites the oldest slot. The zero value is ready to use.
type Ring struct {
	cursor atomic.Uint32
	slots  [RingCapacity]ringSlot
}

// Add records key at the given offset from the tracer's start.
// Offsets below one nanosecond are stored as one so the slot reads as written.
func (r *Ring) Add(elapsed time.Duration, key Key) {
	idx := r.cursor.Add(1) % RingCapacity
	s := &r.slots[idx]

	s.elapsed.Store(max(int64(elapsed), 1))
	s.key.Store(int32(key))
}

// Events returns the written slots oldest first, starting one past the most
// recent write and wrapping around the whole ring.
func (r *Ring) Events() []Event {
	start := r.cursor.Load() + 1
	out := make([]Event, 0, RingCapacity)

	for i := range uint32(RingCapacity) {
		s := &r.slots[(start+i)%RingCapacity]

		elapsed := s.elapsed.Load()
		if elapsed == 0 {
			continue
		}

		out = append(out, Event{Elapsed: time.Duration(elapsed), Key: Key(s.key.Load())})
	}

	return out
}

// Reset clears every slot and rewinds the cursor.
func (r *Ring) Reset() {
	for i := range r.slots {
		r.slots[i].elapsed.Store(0)
		r.slots[i].key.Store(0)
	}

	r.cursor.Store(0)
}
