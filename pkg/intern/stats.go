package intern

// Stats holds interner counters and a point-in-time occupancy census.
type Stats struct {
	Hits      int64
	Misses    int64
	Pruned    int64 // Collected entries dropped by scans or Prune.
	Cancelled int64
	Buckets   int
	Entries   int // Includes entries collected but not yet pruned.
}

// HitRate returns the lookup hit rate as a fraction (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns current counters. Occupancy is gathered bucket by bucket and
// may be inconsistent with concurrent writers.
func (in *Interner[T]) Stats() Stats {
	st := Stats{
		Hits:      in.hits.Load(),
		Misses:    in.misses.Load(),
		Pruned:    in.pruned.Load(),
		Cancelled: in.cancelled.Load(),
	}

	in.buckets.Range(func(_, value any) bool {
		b := value.(*bucket[T]) //nolint:errcheck,forcetypeassert // only *bucket[T] is stored.

		b.mu.Lock()
		st.Buckets++
		st.Entries += len(b.entries)
		b.mu.Unlock()

		return true
	})

	return st
}

// Hits returns the total hit count (atomic, lock-free).
func (in *Interner[T]) Hits() int64 { return in.hits.Load() }

// Misses returns the total miss count (atomic, lock-free).
func (in *Interner[T]) Misses() int64 { return in.misses.Load() }
