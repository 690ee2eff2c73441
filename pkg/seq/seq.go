// Package seq provides immutable, value-equatable sequence handles with a
// precomputed combined hash.
//
// A [Seq] is a small value wrapping a shared payload. Copying a Seq copies the
// reference, never the elements, so handles can be passed around and compared
// cheaply. Handles returned by the same interner for equal contents share one
// payload, which makes [Seq.Equal] a pointer comparison in the common case.
package seq

import (
	"iter"
	"slices"
	"weak"
)

// payload is the shared, immutable backing store of a Seq.
type payload[T any] struct {
	values []T
	cmp    Comparer[T]
	hash   uint32
}

// Seq is an immutable handle around an ordered sequence of T.
// The zero Seq is the canonical empty sequence.
type Seq[T any] struct {
	p *payload[T]
}

// Empty returns the canonical empty sequence.
func Empty[T any]() Seq[T] {
	return Seq[T]{}
}

// New copies values into a fresh handle, computing the combined hash with cmp.
// An empty input yields the canonical empty sequence.
func New[T any](cmp Comparer[T], values []T) Seq[T] {
	if len(values) == 0 {
		return Seq[T]{}
	}

	return FromHashed(cmp, values, Hash(cmp, values))
}

// FromHashed copies values into a fresh handle carrying a hash the caller has
// already computed. hash must equal Hash(cmp, values).
func FromHashed[T any](cmp Comparer[T], values []T, hash uint32) Seq[T] {
	if len(values) == 0 {
		return Seq[T]{}
	}

	return Seq[T]{p: &payload[T]{
		values: slices.Clone(values),
		cmp:    cmp,
		hash:   hash,
	}}
}

// Len returns the number of elements.
func (s Seq[T]) Len() int {
	if s.p == nil {
		return 0
	}

	return len(s.p.values)
}

// IsEmpty reports whether the sequence has no elements.
func (s Seq[T]) IsEmpty() bool { return s.p == nil }

// Hash returns the precomputed combined hash. The empty sequence hashes to 0.
func (s Seq[T]) Hash() uint32 {
	if s.p == nil {
		return 0
	}

	return s.p.hash
}

// At returns the element at index i. It panics if i is out of range.
func (s Seq[T]) At(i int) T {
	if s.p == nil {
		panic("seq: index out of range on empty sequence")
	}

	return s.p.values[i]
}

// All iterates over index/element pairs in order.
func (s Seq[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if s.p == nil {
			return
		}

		for i, v := range s.p.values {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Values returns a copy of the elements.
func (s Seq[T]) Values() []T {
	if s.p == nil {
		return nil
	}

	return slices.Clone(s.p.values)
}

// Same reports whether both handles share the same payload.
func (s Seq[T]) Same(other Seq[T]) bool {
	return s.p == other.p
}

// Equal reports whether both handles hold elementwise-equal contents.
// Checks run cheapest first: identity, hash, length, then elements.
func (s Seq[T]) Equal(other Seq[T]) bool {
	if s.p == other.p {
		return true
	}

	if s.Hash() != other.Hash() || s.Len() != other.Len() {
		return false
	}

	// Equal non-zero lengths imply both payloads are set.
	return s.p.matches(other.p.values)
}

// Matches reports whether the handle holds exactly values, given their
// combined hash.
func (s Seq[T]) Matches(values []T, hash uint32) bool {
	if s.Hash() != hash || s.Len() != len(values) {
		return false
	}

	if s.p == nil {
		return true
	}

	return s.p.matches(values)
}

func (p *payload[T]) matches(values []T) bool {
	for i := range p.values {
		if !p.cmp.Equal(p.values[i], values[i]) {
			return false
		}
	}

	return true
}

// Weak is a weak reference to a handle's payload. It does not keep the
// sequence alive.
type Weak[T any] struct {
	ptr weak.Pointer[payload[T]]
}

// Weak returns a weak reference to the handle.
func (s Seq[T]) Weak() Weak[T] {
	return Weak[T]{ptr: weak.Make(s.p)}
}

// Load returns the referenced handle, or false once it has been collected.
func (w Weak[T]) Load() (Seq[T], bool) {
	p := w.ptr.Value()
	if p == nil {
		return Seq[T]{}, false
	}

	return Seq[T]{p: p}, true
}
