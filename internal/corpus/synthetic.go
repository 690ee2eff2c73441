package corpus

import (
	"context"
	"math/rand/v2"
	"strconv"
)

// SyntheticLanguage labels generated documents.
const SyntheticLanguage = "Synthetic"

// SyntheticOptions shapes a generated corpus.
type SyntheticOptions struct {
	Documents int
	Lines     int
	// Vocabulary bounds distinct tokens; smaller values mean more repeats.
	Vocabulary int
	// MaxTokens bounds line length.
	MaxTokens int
	Seed      uint64
}

// DefaultSynthetic is used by `incrkit run` when no paths are given.
var DefaultSynthetic = SyntheticOptions{
	Documents:  16,
	Lines:      256,
	Vocabulary: 64,
	MaxTokens:  12,
	Seed:       1,
}

// Synthetic generates a deterministic corpus from opts. Every fourth line
// repeats an earlier line of the same document so interning sees hits.
func Synthetic(opts SyntheticOptions) *Corpus {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // not security sensitive

	vocab := max(opts.Vocabulary, 1)
	maxTokens := max(opts.MaxTokens, 1)

	c := &Corpus{Documents: make([]Document, 0, opts.Documents)}

	for d := range opts.Documents {
		doc := Document{
			Path:     "synthetic/" + strconv.Itoa(d),
			Language: SyntheticLanguage,
			Lines:    make([][]string, 0, opts.Lines),
		}

		for l := range opts.Lines {
			if l > 0 && l%4 == 0 {
				doc.Lines = append(doc.Lines, doc.Lines[rng.IntN(l)])

				continue
			}

			line := make([]string, 1+rng.IntN(maxTokens))
			for i := range line {
				line[i] = "t" + strconv.Itoa(rng.IntN(vocab))
			}

			doc.Lines = append(doc.Lines, line)
		}

		c.Documents = append(c.Documents, doc)
	}

	return c
}

// Open loads paths, or generates DefaultSynthetic when there are none. A
// non-zero seed replaces the default synthetic seed.
func Open(ctx context.Context, seed uint64, paths ...string) (*Corpus, error) {
	if len(paths) > 0 {
		return Load(ctx, paths...)
	}

	opts := DefaultSynthetic
	if seed != 0 {
		opts.Seed = seed
	}

	return Synthetic(opts), nil
}
