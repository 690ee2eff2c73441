package pipeline

import (
	"context"

	"github.com/Sumatoshi-tech/incrkit/pkg/intern"
	"github.com/Sumatoshi-tech/incrkit/pkg/seq"
)

// Result is the outcome of one stream input.
type Result[T, Out any] struct {
	Index      int
	Input      seq.Seq[T]
	Output     Out
	Recomputed bool
	Err        error
}

type streamJob[T any] struct {
	index int
	input seq.Seq[T]
	err   error
}

// IndexedStage computes the output for the input at a stream position.
type IndexedStage[In, Out any] interface {
	Run(ctx context.Context, index int, input seq.Seq[In]) (out Out, recomputed bool, err error)
}

type memoStage[In, Out any] struct {
	memo *Memo[In, Out]
}

func (ms memoStage[In, Out]) Run(ctx context.Context, _ int, input seq.Seq[In]) (Out, bool, error) {
	return ms.memo.Run(ctx, input)
}

// Stream interns raw inputs and feeds the resulting handles through a stage.
// Interning and computing run on separate goroutines so the next input is
// interned while the current one computes.
type Stream[T, Out any] struct {
	Interner   *intern.Interner[T]
	Stage      IndexedStage[T, Out]
	BufferSize int
}

// NewStream creates a stream whose inputs all share memo, so an input is
// reused when it equals the one before it. A non-positive bufferSize becomes 1.
func NewStream[T, Out any](in *intern.Interner[T], memo *Memo[T, Out], bufferSize int) *Stream[T, Out] {
	return newStream(in, IndexedStage[T, Out](memoStage[T, Out]{memo: memo}), bufferSize)
}

// NewSlotStream creates a stream that runs the input at index i through
// slot i, so an input is reused when it equals the input at the same position
// of the previous Process call.
func NewSlotStream[T, Out any](in *intern.Interner[T], slots *Slots[T, Out], bufferSize int) *Stream[T, Out] {
	return newStream(in, IndexedStage[T, Out](slots), bufferSize)
}

func newStream[T, Out any](in *intern.Interner[T], stage IndexedStage[T, Out], bufferSize int) *Stream[T, Out] {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	return &Stream[T, Out]{
		Interner:   in,
		Stage:      stage,
		BufferSize: bufferSize,
	}
}

// Process consumes inputs until the channel closes or ctx is done and emits
// one Result per input, in order. Indexes restart at zero on every call.
// The output channel closes when processing stops. An interning error is
// emitted as a Result and ends the stream.
func (s *Stream[T, Out]) Process(ctx context.Context, inputs <-chan []T) <-chan Result[T, Out] {
	out := make(chan Result[T, Out])
	jobs := make(chan streamJob[T], s.BufferSize)

	go s.runProducer(ctx, inputs, jobs)
	go s.runConsumer(ctx, jobs, out)

	return out
}

func (s *Stream[T, Out]) runProducer(ctx context.Context, inputs <-chan []T, jobs chan<- streamJob[T]) {
	defer close(jobs)

	for index := 0; ; index++ {
		var values []T

		select {
		case v, ok := <-inputs:
			if !ok {
				return
			}

			values = v
		case <-ctx.Done():
			return
		}

		handle, err := s.Interner.GetOrCreate(ctx, values)

		select {
		case jobs <- streamJob[T]{index: index, input: handle, err: err}:
		case <-ctx.Done():
			return
		}

		if err != nil {
			return
		}
	}
}

func (s *Stream[T, Out]) runConsumer(ctx context.Context, jobs <-chan streamJob[T], out chan<- Result[T, Out]) {
	defer close(out)

	for job := range jobs {
		res := Result[T, Out]{Index: job.index, Input: job.input, Err: job.err}

		if job.err == nil {
			res.Output, res.Recomputed, res.Err = s.Stage.Run(ctx, job.index, job.input)
		}

		select {
		case out <- res:
		case <-ctx.Done():
			return
		}
	}
}
