package pipeline

import (
	"context"

	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

// StageFunc is one synchronous pipeline step.
type StageFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Tap records an event for id and passes v through unchanged.
func Tap[T any](t *telemetry.Tracer, id telemetry.Stage, v T) T {
	t.Add(id)

	return v
}

// Traced wraps stage so every call is recorded as an entry/exit pair under id.
func Traced[In, Out any](t *telemetry.Tracer, id telemetry.Stage, stage StageFunc[In, Out]) StageFunc[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		defer t.Trace(id)()

		return stage(ctx, in)
	}
}
