package pipeline

import (
	"context"
	"sync"

	"github.com/Sumatoshi-tech/incrkit/pkg/seq"
)

// Slots holds one Memo per input position. Feeding the same list of
// positions pass after pass recomputes only the positions whose input
// changed since the previous pass.
type Slots[In, Out any] struct {
	mu      sync.Mutex
	compute ComputeFunc[In, Out]
	opts    []MemoOption[In, Out]
	memos   []*Memo[In, Out]
}

// NewSlots creates an empty slot set. Every slot Memo is built from compute
// and opts.
func NewSlots[In, Out any](compute ComputeFunc[In, Out], opts ...MemoOption[In, Out]) *Slots[In, Out] {
	return &Slots[In, Out]{compute: compute, opts: opts}
}

// Memo returns the Memo for index, growing the set as needed.
func (s *Slots[In, Out]) Memo(index int) *Memo[In, Out] {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.memos) <= index {
		s.memos = append(s.memos, NewMemo(s.compute, s.opts...))
	}

	return s.memos[index]
}

// Run runs input through the Memo at index.
func (s *Slots[In, Out]) Run(ctx context.Context, index int, input seq.Seq[In]) (Out, bool, error) {
	return s.Memo(index).Run(ctx, input)
}

// Len reports how many slots exist.
func (s *Slots[In, Out]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.memos)
}

// Invalidate forces every slot to recompute on its next run.
func (s *Slots[In, Out]) Invalidate() {
	s.mu.Lock()
	memos := s.memos
	s.mu.Unlock()

	for _, m := range memos {
		m.Invalidate()
	}
}
