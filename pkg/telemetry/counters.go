package telemetry

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

// Counters is a concurrent table of signed running counts keyed by [Key].
// The zero value is ready to use.
type Counters struct {
	m sync.Map // Key -> *atomic.Int64.
}

// Count is one counter snapshot entry.
type Count struct {
	Key   Key
	Value int64
}

func (c *Counters) slot(k Key) *atomic.Int64 {
	if v, ok := c.m.Load(k); ok {
		return v.(*atomic.Int64) //nolint:errcheck,forcetypeassert // only *atomic.Int64 is stored.
	}

	v, _ := c.m.LoadOrStore(k, new(atomic.Int64))

	return v.(*atomic.Int64) //nolint:errcheck,forcetypeassert // only *atomic.Int64 is stored.
}

// Increment adds 1 to the counter for k.
func (c *Counters) Increment(k Key) int64 { return c.slot(k).Add(1) }

// Decrement subtracts 1 from the counter for k.
func (c *Counters) Decrement(k Key) int64 { return c.slot(k).Add(-1) }

// Add adds delta to the counter for k and returns the new count.
func (c *Counters) Add(k Key, delta int64) int64 { return c.slot(k).Add(delta) }

// Get returns the current count for k, 0 if never touched.
func (c *Counters) Get(k Key) int64 {
	v, ok := c.m.Load(k)
	if !ok {
		return 0
	}

	return v.(*atomic.Int64).Load() //nolint:errcheck,forcetypeassert // only *atomic.Int64 is stored.
}

// Snapshot returns all touched counters ordered by id, then by full key.
func (c *Counters) Snapshot() []Count {
	var out []Count

	c.m.Range(func(k, v any) bool {
		out = append(out, Count{
			Key:   k.(Key),                     //nolint:errcheck,forcetypeassert // only Key is stored.
			Value: v.(*atomic.Int64).Load(), //nolint:errcheck,forcetypeassert // only *atomic.Int64 is stored.
		})

		return true
	})

	slices.SortFunc(out, func(a, b Count) int {
		return cmp.Or(cmp.Compare(a.Key.ID(), b.Key.ID()), cmp.Compare(a.Key, b.Key))
	})

	return out
}

// Reset drops every counter.
func (c *Counters) Reset() {
	c.m.Clear()
}
