package intern

import (
	"context"

	"github.com/Sumatoshi-tech/incrkit/pkg/seq"
)

// ProbeScan runs a bucket scan for values directly, bypassing the entry
// cancellation check, and reports the bucket length afterwards.
func ProbeScan[T any](ctx context.Context, in *Interner[T], values []T) (seq.Seq[T], int, error) {
	hash := seq.Hash(in.cmp, values)
	b := in.bucketFor(hash)

	s, _, err := in.lookup(ctx, b, values, hash)

	b.mu.Lock()
	defer b.mu.Unlock()

	return s, len(b.entries), err
}
