package workload_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/incrkit/internal/corpus"
	"github.com/Sumatoshi-tech/incrkit/internal/workload"
	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

const (
	testWorkers    = 2
	testIterations = 5
	testWindow     = 8
)

var testCorpus = corpus.SyntheticOptions{Documents: 2, Lines: 32, Vocabulary: 6, MaxTokens: 3, Seed: 3}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRunner(opts workload.Options) *workload.Runner {
	if opts.Logger == nil {
		opts.Logger = discard()
	}

	return workload.New(opts)
}

func TestRun_CountsPasses(t *testing.T) {
	t.Parallel()

	r := newRunner(workload.Options{
		Workers:    testWorkers,
		Iterations: testIterations,
		Window:     testWindow,
		Caching:    true,
		Seed:       9,
	})

	sum, err := r.Run(context.Background(), corpus.Synthetic(testCorpus))
	require.NoError(t, err)

	passes := int64(testWorkers * (testIterations + 1))

	assert.Equal(t, testWorkers, sum.Workers)
	assert.Equal(t, testWindow, sum.Window)
	assert.Equal(t, 64, sum.Sequences)
	assert.Equal(t, passes, sum.Passes)
	assert.Equal(t, passes*testWindow, sum.Processed)
	assert.Equal(t, int64(testWorkers*testIterations), sum.Edits)
	assert.Equal(t, sum.Processed, sum.Recomputed+sum.Reused)

	// Every slot computes once initially and each edit can invalidate at most one slot.
	assert.GreaterOrEqual(t, sum.Recomputed, int64(testWorkers*testWindow))
	assert.LessOrEqual(t, sum.Recomputed, int64(testWorkers*(testWindow+testIterations)))
	assert.InDelta(t, float64(sum.Reused)/float64(sum.Processed), sum.ReuseRate(), 1e-9)

	assert.Positive(t, sum.Stats.Hits)
	assert.Positive(t, sum.Tokens)
	assert.Equal(t, map[string]int{corpus.SyntheticLanguage: 2}, sum.Languages)
}

func TestRun_DeterministicPerSeed(t *testing.T) {
	t.Parallel()

	opts := workload.Options{Workers: 1, Iterations: 20, Window: 4, Caching: true, Seed: 11}

	a, err := newRunner(opts).Run(context.Background(), corpus.Synthetic(testCorpus))
	require.NoError(t, err)

	b, err := newRunner(opts).Run(context.Background(), corpus.Synthetic(testCorpus))
	require.NoError(t, err)

	assert.Equal(t, a.Recomputed, b.Recomputed)
	assert.Equal(t, a.Tokens, b.Tokens)
}

func TestRun_NoCacheStillReuses(t *testing.T) {
	t.Parallel()

	r := newRunner(workload.Options{Workers: 1, Iterations: 3, Window: 4, Caching: false})

	sum, err := r.Run(context.Background(), corpus.Synthetic(testCorpus))
	require.NoError(t, err)

	assert.Zero(t, sum.Stats.Hits)
	assert.Positive(t, sum.Stats.Misses)
	assert.Positive(t, sum.Reused)
	assert.False(t, r.Interner().Caching())
}

func TestRun_WindowClampedToCorpus(t *testing.T) {
	t.Parallel()

	c := &corpus.Corpus{Documents: []corpus.Document{{Lines: [][]string{{"a"}, nil, {"b"}}}}}

	sum, err := newRunner(workload.Options{Workers: 1, Window: 100, Caching: true}).Run(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Window)
	assert.Equal(t, int64(1), sum.Passes)
	assert.Equal(t, int64(2), sum.Recomputed)
}

func TestRun_EmptyCorpus(t *testing.T) {
	t.Parallel()

	r := newRunner(workload.Options{Workers: 1})

	_, err := r.Run(context.Background(), &corpus.Corpus{})
	require.ErrorIs(t, err, workload.ErrNoSequences)
	require.ErrorIs(t, r.Ready(context.Background()), workload.ErrNotStarted)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newRunner(workload.Options{Workers: testWorkers, Iterations: testIterations, Window: testWindow, Caching: true})

	_, err := r.Run(ctx, corpus.Synthetic(testCorpus))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_TracesStages(t *testing.T) {
	t.Parallel()

	tr := telemetry.New()
	r := newRunner(workload.Options{
		Workers:    1,
		Iterations: 2,
		Window:     testWindow,
		PruneEvery: 1,
		Caching:    true,
		Tracer:     tr,
	})

	sum, err := r.Run(context.Background(), corpus.Synthetic(testCorpus))
	require.NoError(t, err)

	callKey := func(id telemetry.Stage) telemetry.Key {
		return telemetry.Encode(int(telemetry.StageMethodCall), int(id), true)
	}

	assert.Equal(t, sum.Passes, tr.Count(callKey(workload.StagePass)))
	assert.Equal(t, sum.Passes, tr.Count(callKey(workload.StagePrune)))
	assert.Equal(t, sum.Edits, tr.Count(callKey(workload.StageEdit)))
	assert.Equal(t, sum.Recomputed, tr.Count(callKey(workload.StageMeasure)))
	assert.Equal(t, sum.Reused, tr.Count(telemetry.Encode(int(telemetry.StageMemoReuse), 0, false)))

	langKey := telemetry.Encode(int(workload.StageLanguage), int(workload.StageLanguageBase), true)
	assert.Equal(t, int64(2), tr.Count(langKey))

	names := r.Names(telemetry.StageNames())
	assert.Equal(t, corpus.SyntheticLanguage, names[int(workload.StageLanguageBase)])
	assert.Equal(t, "Language ("+corpus.SyntheticLanguage+")", telemetry.NewReporter(names).Label(langKey))
}

func languageCorpus(langs ...string) *corpus.Corpus {
	c := &corpus.Corpus{}
	for i, lang := range langs {
		c.Documents = append(c.Documents, corpus.Document{
			Language: lang,
			Lines:    [][]string{{"doc", strconv.Itoa(i)}},
		})
	}

	return c
}

func TestRun_LanguageIDsStableAcrossRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tr := telemetry.New()
	r := newRunner(workload.Options{Workers: 1, Caching: true, Tracer: tr})

	_, err := r.Run(ctx, languageCorpus("Go", "Python", "Go"))
	require.NoError(t, err)

	_, err = r.Run(ctx, languageCorpus("C"))
	require.NoError(t, err)

	var buf bytes.Buffer

	reporter := telemetry.NewReporter(r.Names(telemetry.StageNames()))
	require.NoError(t, reporter.WriteCounts(&buf, tr.Counts()))

	out := buf.String()
	assert.Contains(t, out, "[068] Language (Go): 2\n")
	assert.Contains(t, out, "[068] Language (Python): 1\n")
	assert.Contains(t, out, "[068] Language (C): 1\n")
	assert.NotContains(t, out, "Language (1")

	_, err = r.Run(ctx, languageCorpus("Python"))
	require.NoError(t, err)

	pythonKey := telemetry.Encode(int(workload.StageLanguage), int(workload.StageLanguageBase)+1, true)
	assert.Equal(t, int64(2), tr.Count(pythonKey))
}

func TestRunner_Ready(t *testing.T) {
	t.Parallel()

	r := newRunner(workload.Options{Workers: 1, Caching: true})

	require.ErrorIs(t, r.Ready(context.Background()), workload.ErrNotStarted)

	_, err := r.Run(context.Background(), corpus.Synthetic(testCorpus))
	require.NoError(t, err)

	assert.NoError(t, r.Ready(context.Background()))
}

func TestRunner_NamesBaseWins(t *testing.T) {
	t.Parallel()

	r := newRunner(workload.Options{})

	names := r.Names(telemetry.NameTable{int(workload.StageEdit): "Keystroke"})

	assert.Equal(t, "Keystroke", names[int(workload.StageEdit)])
	assert.Equal(t, "Measure", names[int(workload.StageMeasure)])
}

func TestRun_Logs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	r := workload.New(workload.Options{
		Workers: 1,
		Caching: true,
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	})

	_, err := r.Run(context.Background(), corpus.Synthetic(testCorpus))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "workload started")
	assert.Contains(t, buf.String(), "workload finished")
}
