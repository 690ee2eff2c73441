// Package intern deduplicates immutable sequences by value.
//
// An [Interner] hands out one shared [seq.Seq] per distinct content for as
// long as some caller keeps that handle alive. It holds only weak references,
// so an entry no caller retains is reclaimed by the garbage collector and
// dropped from its bucket on the next scan or [Interner.Prune].
package intern

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Sumatoshi-tech/incrkit/pkg/seq"
	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

// ErrCancelled is returned, wrapped together with the context error, when a
// lookup or prune pass is cancelled. A cancelled call leaves the cache as it
// found it.
var ErrCancelled = errors.New("intern: cancelled")

// bucket holds weak references to every live handle sharing one hash,
// oldest first.
type bucket[T any] struct {
	mu      sync.Mutex
	entries []seq.Weak[T]
	// dead is set once Prune unlinks the bucket; holders must retry.
	dead bool
}

// Interner is a concurrent, weakly-referencing sequence cache.
type Interner[T any] struct {
	cmp     seq.Comparer[T]
	buckets sync.Map // uint32 -> *bucket[T].
	caching bool
	tracer  *telemetry.Tracer

	hits      atomic.Int64
	misses    atomic.Int64
	pruned    atomic.Int64
	cancelled atomic.Int64
}

// Option configures an Interner.
type Option[T any] func(*Interner[T])

// WithCaching toggles deduplication. When disabled, every call computes the
// hash and returns a fresh handle without touching the cache.
func WithCaching[T any](enabled bool) Option[T] {
	return func(in *Interner[T]) {
		in.caching = enabled
	}
}

// WithTracer records hit, miss, prune, cancel and sequence-length counters
// on t.
func WithTracer[T any](t *telemetry.Tracer) Option[T] {
	return func(in *Interner[T]) {
		in.tracer = t
	}
}

// New creates an Interner comparing elements with cmp. Caching is on by default.
func New[T any](cmp seq.Comparer[T], opts ...Option[T]) *Interner[T] {
	in := &Interner[T]{
		cmp:     cmp,
		caching: true,
	}

	for _, opt := range opts {
		opt(in)
	}

	return in
}

// Caching reports whether deduplication is enabled.
func (in *Interner[T]) Caching() bool { return in.caching }

// GetOrCreate returns a handle elementwise-equal to values. With caching on,
// equal inputs yield the same handle while any caller still holds it.
// An empty input always yields the canonical empty handle.
func (in *Interner[T]) GetOrCreate(ctx context.Context, values []T) (seq.Seq[T], error) {
	if len(values) == 0 {
		return seq.Empty[T](), nil
	}

	if err := ctx.Err(); err != nil {
		return seq.Seq[T]{}, in.cancel(err)
	}

	in.tracer.IncrementValue(telemetry.StageSequenceLength, min(len(values), telemetry.MaxValue-1), false)

	hash := seq.Hash(in.cmp, values)

	if !in.caching {
		in.recordMiss(len(values))

		return seq.FromHashed(in.cmp, values, hash), nil
	}

	for {
		b := in.bucketFor(hash)

		s, ok, err := in.lookup(ctx, b, values, hash)
		if err != nil {
			return seq.Seq[T]{}, in.cancel(err)
		}

		if ok {
			return s, nil
		}
	}
}

func (in *Interner[T]) bucketFor(hash uint32) *bucket[T] {
	if v, ok := in.buckets.Load(hash); ok {
		return v.(*bucket[T]) //nolint:errcheck,forcetypeassert // only *bucket[T] is stored.
	}

	v, _ := in.buckets.LoadOrStore(hash, &bucket[T]{})

	return v.(*bucket[T]) //nolint:errcheck,forcetypeassert // only *bucket[T] is stored.
}

// lookup scans b newest first for a live match and appends a new handle on
// miss. ok is false when b was unlinked by Prune and the caller must retry.
func (in *Interner[T]) lookup(ctx context.Context, b *bucket[T], values []T, hash uint32) (seq.Seq[T], bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dead {
		return seq.Seq[T]{}, false, nil
	}

	stale := 0

	for i := len(b.entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return seq.Seq[T]{}, true, err
		}

		s, live := b.entries[i].Load()
		if !live {
			stale++

			continue
		}

		if s.Matches(values, hash) {
			if stale > 0 {
				in.recordPruned(b.compact())
			}

			in.hits.Add(1)
			in.tracer.IncrementCount(telemetry.StageInternHit)

			return s, true, nil
		}
	}

	if stale > 0 {
		in.recordPruned(b.compact())
	}

	s := seq.FromHashed(in.cmp, values, hash)
	b.entries = append(b.entries, s.Weak())

	in.recordMiss(len(values))

	return s, true, nil
}

// compact drops collected entries and returns how many were removed.
// Callers hold b.mu.
func (b *bucket[T]) compact() int {
	kept := b.entries[:0]

	for _, w := range b.entries {
		if _, live := w.Load(); live {
			kept = append(kept, w)
		}
	}

	removed := len(b.entries) - len(kept)

	clear(b.entries[len(kept):])
	b.entries = kept

	return removed
}

// Prune compacts every bucket and unlinks empty ones. It returns the number
// of collected entries removed. Cancellation stops the pass between buckets;
// buckets already visited stay compacted.
func (in *Interner[T]) Prune(ctx context.Context) (int, error) {
	removed := 0

	var err error

	in.buckets.Range(func(key, value any) bool {
		if err = ctx.Err(); err != nil {
			return false
		}

		b := value.(*bucket[T]) //nolint:errcheck,forcetypeassert // only *bucket[T] is stored.

		b.mu.Lock()
		removed += b.compact()

		if len(b.entries) == 0 && !b.dead {
			b.dead = true
			in.buckets.CompareAndDelete(key, b)
		}
		b.mu.Unlock()

		return true
	})

	in.recordPruned(removed)

	if err != nil {
		return removed, in.cancel(err)
	}

	return removed, nil
}

func (in *Interner[T]) recordMiss(length int) {
	in.misses.Add(1)
	in.tracer.AddValue(telemetry.StageInternMiss, min(length, telemetry.MaxValue-1))
}

func (in *Interner[T]) recordPruned(n int) {
	if n == 0 {
		return
	}

	in.pruned.Add(int64(n))
	in.tracer.AddCount(telemetry.Encode(int(telemetry.StageInternPruned), 0, false), int64(n))
}

func (in *Interner[T]) cancel(cause error) error {
	in.cancelled.Add(1)
	in.tracer.IncrementCount(telemetry.StageInternCancelled)

	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
