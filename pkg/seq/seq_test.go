package seq_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/incrkit/pkg/seq"
)

type point struct {
	x, y int
}

func (p *point) Equal(other *point) bool { return p.x == other.x && p.y == other.y }
func (p *point) Hash() uint32            { return uint32(p.x*31 + p.y) } //nolint:gosec // test hash.

type cell int

func (c cell) Equal(other cell) bool { return c == other }
func (c cell) Hash() uint32          { return uint32(c) } //nolint:gosec // test hash.

func TestFold_MatchesFormula(t *testing.T) {
	t.Parallel()

	// (rotl(0,5)+0)^7 = 7; (rotl(7,5)+7)^9 = (224+7)^9 = 238.
	assert.Equal(t, uint32(7), seq.Fold(0, 7))
	assert.Equal(t, uint32(238), seq.Fold(7, 9))
}

func TestFold_RotatesHighBits(t *testing.T) {
	t.Parallel()

	const top = uint32(1) << 31

	// rotl(top,5) = 1<<4; +top keeps the top bit.
	assert.Equal(t, uint32(1<<4)+top, seq.Fold(top, 0))
}

func TestHash_OrderSensitive(t *testing.T) {
	t.Parallel()

	cmp := seq.Comparable[int]()

	assert.NotEqual(t, seq.Hash(cmp, []int{1, 2}), seq.Hash(cmp, []int{2, 1}))
	assert.Equal(t, seq.Hash(cmp, []int{1, 2}), seq.Hash(cmp, []int{1, 2}))
}

func TestNew_EmptyIsCanonical(t *testing.T) {
	t.Parallel()

	a := seq.New(seq.Strings, nil)
	b := seq.New(seq.Strings, []string{})

	assert.True(t, a.Same(b))
	assert.True(t, a.Same(seq.Empty[string]()))
	assert.True(t, a.IsEmpty())
	assert.Equal(t, uint32(0), a.Hash())
	assert.Equal(t, 0, a.Len())
	assert.Nil(t, a.Values())
}

func TestNew_CopiesInput(t *testing.T) {
	t.Parallel()

	in := []string{"a", "b"}
	s := seq.New(seq.Strings, in)
	in[0] = "z"

	assert.Equal(t, "a", s.At(0))

	out := s.Values()
	out[1] = "z"

	assert.Equal(t, "b", s.At(1))
}

func TestEqual_DistinctPayloads(t *testing.T) {
	t.Parallel()

	a := seq.New(seq.Strings, []string{"x", "y", "z"})
	b := seq.New(seq.Strings, []string{"x", "y", "z"})
	c := seq.New(seq.Strings, []string{"x", "y"})
	d := seq.New(seq.Strings, []string{"x", "y", "w"})

	assert.False(t, a.Same(b))
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(seq.Empty[string]()))
	assert.False(t, seq.Empty[string]().Equal(a))
}

// collidingCmp hashes every element to the same value so equality must
// fall through to the elementwise comparison.
type collidingCmp struct{}

func (collidingCmp) Equal(a, b string) bool { return a == b }
func (collidingCmp) Hash(string) uint32     { return 1 }

func TestEqual_HashCollisionFallsBackToElements(t *testing.T) {
	t.Parallel()

	a := seq.New[string](collidingCmp{}, []string{"a", "b"})
	b := seq.New[string](collidingCmp{}, []string{"c", "d"})

	require.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(b))
}

func TestMatches(t *testing.T) {
	t.Parallel()

	values := []int{4, 5, 6}
	cmp := seq.Comparable[int]()
	s := seq.New(cmp, values)

	assert.True(t, s.Matches(values, seq.Hash(cmp, values)))
	assert.False(t, s.Matches([]int{4, 5}, seq.Hash(cmp, []int{4, 5})))
	assert.True(t, seq.Empty[int]().Matches(nil, 0))
}

func TestAll_StopsEarly(t *testing.T) {
	t.Parallel()

	s := seq.New(seq.Comparable[int](), []int{10, 20, 30})

	var seen []int

	for i, v := range s.All() {
		seen = append(seen, v)

		if i == 1 {
			break
		}
	}

	assert.Equal(t, []int{10, 20}, seen)
}

func TestComparable_NilInterfaceHashesToZero(t *testing.T) {
	t.Parallel()

	cmp := seq.Comparable[any]()

	assert.Equal(t, uint32(0), cmp.Hash(nil))
	assert.NotEqual(t, uint32(0), cmp.Hash("x"))
}

func TestComparable_NilPointerHashesToZero(t *testing.T) {
	t.Parallel()

	var p *int

	assert.Equal(t, uint32(0), seq.Comparable[*int]().Hash(p))
}

func TestStrings_StableHash(t *testing.T) {
	t.Parallel()

	const word = "incremental"

	assert.Equal(t, seq.Strings.Hash(word), seq.Strings.Hash(strings.Clone(word)))
}

func TestBytes_NilAndContent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0), seq.Bytes.Hash(nil))
	assert.True(t, seq.Bytes.Equal([]byte("ab"), []byte("ab")))
	assert.Equal(t, seq.Bytes.Hash([]byte("ab")), seq.Bytes.Hash([]byte("ab")))
}

func TestSelf_DelegatesAndHandlesNil(t *testing.T) {
	t.Parallel()

	cmp := seq.Self[*point]()

	a := seq.New(cmp, []*point{{1, 2}, nil})
	b := seq.New(cmp, []*point{{1, 2}, nil})
	c := seq.New(cmp, []*point{{1, 2}, {0, 0}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, uint32(0), cmp.Hash(nil))
}

func TestComparers_NilCheckOnlyForNillableKinds(t *testing.T) {
	t.Parallel()

	assert.False(t, seq.ChecksNil(seq.Comparable[int]()))
	assert.False(t, seq.ChecksNil(seq.Comparable[string]()))
	assert.False(t, seq.ChecksNil(seq.Self[cell]()))

	assert.True(t, seq.ChecksNil(seq.Comparable[*int]()))
	assert.True(t, seq.ChecksNil(seq.Comparable[any]()))
	assert.True(t, seq.ChecksNil(seq.Self[*point]()))
}

func TestSelf_ValueElements(t *testing.T) {
	t.Parallel()

	cmp := seq.Self[cell]()

	assert.Equal(t, uint32(0), cmp.Hash(0))
	assert.Equal(t, uint32(7), cmp.Hash(7))
	assert.True(t, seq.New(cmp, []cell{1, 2}).Equal(seq.New(cmp, []cell{1, 2})))
	assert.False(t, seq.New(cmp, []cell{1, 2}).Equal(seq.New(cmp, []cell{2, 1})))
}

func TestWeak_LoadWhileReachable(t *testing.T) {
	t.Parallel()

	s := seq.New(seq.Strings, []string{"live"})
	w := s.Weak()

	got, ok := w.Load()
	require.True(t, ok)
	assert.True(t, got.Same(s))
}

func TestWeak_EmptyNeverLoads(t *testing.T) {
	t.Parallel()

	_, ok := seq.Empty[int]().Weak().Load()
	assert.False(t, ok)
}
