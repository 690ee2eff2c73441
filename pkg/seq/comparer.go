package seq

import (
	"bytes"
	"hash/maphash"
	"math/bits"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// rotateBits is the left rotation applied to the running hash before each
// element is folded in.
const rotateBits = 5

// Comparer supplies value equality and a 32-bit hash for elements of type T.
// Equal elements must hash equally. Nil elements should hash to 0.
type Comparer[T any] interface {
	Equal(a, b T) bool
	Hash(v T) uint32
}

// Fold mixes one element hash into a running combined hash.
func Fold(h, elem uint32) uint32 {
	return (bits.RotateLeft32(h, rotateBits) + h) ^ elem
}

// Hash folds the element hashes of values left to right, starting from 0.
func Hash[T any](cmp Comparer[T], values []T) uint32 {
	var h uint32

	for _, v := range values {
		h = Fold(h, cmp.Hash(v))
	}

	return h
}

// Equatable is implemented by element types that define their own equality.
type Equatable[T any] interface {
	Equal(other T) bool
	Hash() uint32
}

type comparableCmp[T comparable] struct {
	seed     maphash.Seed
	nillable bool
}

// Comparable returns a Comparer using == and a process-local maphash seed.
// Hashes are stable within a process only.
func Comparable[T comparable]() Comparer[T] {
	return comparableCmp[T]{seed: processSeed, nillable: nillable[T]()}
}

var processSeed = maphash.MakeSeed()

func (comparableCmp[T]) Equal(a, b T) bool { return a == b }

func (c comparableCmp[T]) Hash(v T) uint32 {
	if c.nillable && isNil(v) {
		return 0
	}

	return fold64(maphash.Comparable(c.seed, v))
}

type stringCmp struct{}

// Strings compares strings bytewise and hashes them with xxhash, so hashes
// are stable across processes.
var Strings Comparer[string] = stringCmp{}

func (stringCmp) Equal(a, b string) bool { return a == b }
func (stringCmp) Hash(v string) uint32   { return fold64(xxhash.Sum64String(v)) }

type bytesCmp struct{}

// Bytes compares byte slices by content. A nil slice hashes to 0.
var Bytes Comparer[[]byte] = bytesCmp{}

func (bytesCmp) Equal(a, b []byte) bool { return bytes.Equal(a, b) }

func (bytesCmp) Hash(v []byte) uint32 {
	if v == nil {
		return 0
	}

	return fold64(xxhash.Sum64(v))
}

type selfCmp[T Equatable[T]] struct {
	nillable bool
}

// Self returns a Comparer delegating to the element's own Equal and Hash.
func Self[T Equatable[T]]() Comparer[T] {
	return selfCmp[T]{nillable: nillable[T]()}
}

func (c selfCmp[T]) Equal(a, b T) bool {
	if !c.nillable {
		return a.Equal(b)
	}

	aNil, bNil := isNil(a), isNil(b)
	if aNil || bNil {
		return aNil && bNil
	}

	return a.Equal(b)
}

func (c selfCmp[T]) Hash(v T) uint32 {
	if c.nillable && isNil(v) {
		return 0
	}

	return v.Hash()
}

// fold64 reduces a 64-bit hash to 32 bits keeping entropy from both halves.
func fold64(h uint64) uint32 {
	return uint32(h) ^ uint32(h>>32) //nolint:gosec // intentional truncation.
}

// nillable reports whether values of T can be nil.
func nillable[T any]() bool {
	switch reflect.TypeFor[T]().Kind() { //nolint:exhaustive // only nillable kinds matter.
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// isNil reflects on v. Comparers call it only when nillable[T] holds.
func isNil[T any](v T) bool {
	a := any(v)
	if a == nil {
		return true
	}

	rv := reflect.ValueOf(a)

	switch rv.Kind() { //nolint:exhaustive // only nillable kinds matter.
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
