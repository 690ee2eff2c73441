// Package pipeline provides incremental stage building blocks on top of
// interned sequences: a memoizing stage that skips work when its input is
// unchanged, tracing taps, and a channel-driven stream that wires interning
// and memoization together.
package pipeline

import (
	"context"
	"sync"

	"github.com/Sumatoshi-tech/incrkit/pkg/seq"
	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

// ComputeFunc derives a stage output from an interned input.
type ComputeFunc[In, Out any] func(ctx context.Context, input seq.Seq[In]) (Out, error)

// Memo re-runs its compute function only when the input handle is not equal
// to the one seen last. With interned inputs the equality check is usually a
// pointer comparison.
type Memo[In, Out any] struct {
	mu      sync.Mutex
	compute ComputeFunc[In, Out]
	tracer  *telemetry.Tracer
	id      telemetry.Stage

	last  seq.Seq[In]
	out   Out
	valid bool
}

// MemoOption configures a Memo.
type MemoOption[In, Out any] func(*Memo[In, Out])

// WithMemoTracer records reuse and recompute counts and traces each compute
// call under id.
func WithMemoTracer[In, Out any](t *telemetry.Tracer, id telemetry.Stage) MemoOption[In, Out] {
	return func(m *Memo[In, Out]) {
		m.tracer = t
		m.id = id
	}
}

// NewMemo creates a Memo around compute.
func NewMemo[In, Out any](compute ComputeFunc[In, Out], opts ...MemoOption[In, Out]) *Memo[In, Out] {
	m := &Memo[In, Out]{compute: compute}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run returns the cached output when input equals the previous input, and
// otherwise computes and caches a new one. recomputed reports which happened.
// A failed compute leaves the previous output cached.
func (m *Memo[In, Out]) Run(ctx context.Context, input seq.Seq[In]) (out Out, recomputed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.last.Equal(input) {
		m.tracer.IncrementCount(telemetry.StageMemoReuse)

		return m.out, false, nil
	}

	m.tracer.IncrementCount(telemetry.StageMemoRecompute)

	var exit func()
	if m.id != 0 {
		exit = m.tracer.Trace(m.id)
	}

	out, err = m.compute(ctx, input)

	if exit != nil {
		exit()
	}

	if err != nil {
		var zero Out

		return zero, true, err
	}

	m.last, m.out, m.valid = input, out, true

	return out, true, nil
}

// Invalidate forgets the cached output so the next Run recomputes.
func (m *Memo[In, Out]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero Out

	m.last, m.out, m.valid = seq.Seq[In]{}, zero, false
}
