// Package workload drives concurrent incremental passes over a corpus.
//
// Each worker keeps a window of corpus lines. A pass interns every line in
// the window and runs it through a per-position memo, so only positions whose
// line changed since the previous pass are recomputed. Between passes one
// position is edited to point at another line, which models a document
// being changed one line at a time. All workers share one interner.
package workload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/incrkit/internal/corpus"
	"github.com/Sumatoshi-tech/incrkit/pkg/intern"
	"github.com/Sumatoshi-tech/incrkit/pkg/pipeline"
	"github.com/Sumatoshi-tech/incrkit/pkg/seq"
	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

// Workload stage ids.
const (
	StageEdit telemetry.Stage = telemetry.StageUserBase + iota
	StageMeasure
	StagePass
	StagePrune
	StageLanguage
)

// StageLanguageBase is the first mapped id used to name detected languages.
const StageLanguageBase telemetry.Stage = 128

// maxLanguages bounds the language name ids so they stay below the key id range.
const maxLanguages = 512

const spanTracerName = "incrkit/workload"

// Sentinel errors.
var (
	// ErrNoSequences indicates the corpus holds no non-empty lines.
	ErrNoSequences = errors.New("corpus has no sequences")
	// ErrNotStarted indicates no run has begun yet.
	ErrNotStarted = errors.New("workload not started")
)

// Options configures a Runner.
type Options struct {
	// Workers is the number of concurrent workers. Zero uses GOMAXPROCS.
	Workers int
	// Iterations is the number of edit passes each worker runs after its
	// initial pass.
	Iterations int
	// Window is the number of lines each worker tracks. Zero or a value
	// larger than the corpus uses every line.
	Window int
	// PruneEvery runs an interner prune after this many passes across all
	// workers. Zero disables periodic pruning.
	PruneEvery int
	// Caching is passed to the interner.
	Caching bool
	// Seed makes edits reproducible.
	Seed uint64
	// Tracer receives stage events and counters. Nil disables recording.
	Tracer *telemetry.Tracer
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Spans defaults to the global OpenTelemetry tracer provider.
	Spans trace.Tracer
}

// Measure is the output of the per-line stage.
type Measure struct {
	Tokens int
	Bytes  int
}

// Runner owns the shared interner and runs workloads against it.
type Runner struct {
	opts     Options
	interner *intern.Interner[string]
	logger   *slog.Logger
	spans    trace.Tracer

	started atomic.Bool

	// langs holds every language seen by any run, in id order. A language
	// keeps its id for the life of the Runner, so counters recorded on a
	// shared tracer stay attributed across runs.
	langMu  sync.Mutex
	langs   []string
	langIDs map[string]telemetry.Stage
}

// New creates a Runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	spans := opts.Spans
	if spans == nil {
		spans = otel.Tracer(spanTracerName)
	}

	return &Runner{
		opts: opts,
		interner: intern.New(seq.Strings,
			intern.WithCaching[string](opts.Caching),
			intern.WithTracer[string](opts.Tracer),
		),
		logger: logger,
		spans:  spans,
	}
}

// Interner returns the shared interner.
func (r *Runner) Interner() *intern.Interner[string] { return r.interner }

// Tracer returns the tracer events are recorded on.
func (r *Runner) Tracer() *telemetry.Tracer { return r.opts.Tracer }

// Ready reports whether a run has started.
func (r *Runner) Ready(context.Context) error {
	if !r.started.Load() {
		return ErrNotStarted
	}

	return nil
}

// Names returns base extended with the workload stage names and the
// languages seen by every run so far.
func (r *Runner) Names(base telemetry.NameTable) telemetry.NameTable {
	extra := telemetry.NameTable{
		int(StageEdit):     "Edit",
		int(StageMeasure):  "Measure",
		int(StagePass):     "Pass",
		int(StagePrune):    "Prune",
		int(StageLanguage): "Language",
	}

	r.langMu.Lock()
	for i, lang := range r.langs {
		extra[int(StageLanguageBase)+i] = lang
	}
	r.langMu.Unlock()

	return extra.Merge(base)
}

// Run executes the workload over c and returns a summary. The returned error
// is the first worker failure, typically a cancellation.
func (r *Runner) Run(ctx context.Context, c *corpus.Corpus) (Summary, error) {
	seqs := c.Sequences()
	if len(seqs) == 0 {
		return Summary{}, ErrNoSequences
	}

	r.started.Store(true)

	workers := r.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	window := r.opts.Window
	if window <= 0 || window > len(seqs) {
		window = len(seqs)
	}

	ctx, span := r.spans.Start(ctx, "workload.run", trace.WithAttributes(
		attribute.Int("workload.workers", workers),
		attribute.Int("workload.window", window),
		attribute.Int("workload.iterations", r.opts.Iterations),
		attribute.Int("workload.sequences", len(seqs)),
	))
	defer span.End()

	languages := c.Languages()
	r.recordLanguages(languages)

	r.logger.InfoContext(ctx, "workload started",
		"workers", workers,
		"window", window,
		"iterations", r.opts.Iterations,
		"sequences", len(seqs),
		"caching", r.interner.Caching(),
	)

	start := time.Now()
	t := &tally{}

	g, gctx := errgroup.WithContext(ctx)

	for id := range workers {
		g.Go(func() error {
			return r.work(gctx, id, seqs, window, t)
		})
	}

	err := g.Wait()

	sum := Summary{
		Workers:    workers,
		Window:     window,
		Sequences:  len(seqs),
		Passes:     t.passes.Load(),
		Processed:  t.processed.Load(),
		Recomputed: t.recomputed.Load(),
		Reused:     t.reused.Load(),
		Edits:      t.edits.Load(),
		Tokens:     t.tokens.Load(),
		Pruned:     t.pruned.Load(),
		Languages:  languages,
		Stats:      r.interner.Stats(),
		Elapsed:    time.Since(start),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "workload stopped", "error", err, "passes", sum.Passes)

		return sum, fmt.Errorf("run workload: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("workload.recomputed", sum.Recomputed),
		attribute.Int64("workload.reused", sum.Reused),
	)

	r.logger.InfoContext(ctx, "workload finished",
		"passes", sum.Passes,
		"recomputed", sum.Recomputed,
		"reused", sum.Reused,
		"hit_rate", sum.Stats.HitRate(),
		"elapsed", sum.Elapsed,
	)

	return sum, nil
}

// recordLanguages adds each language's document count to its counter.
// Languages are assigned ids in sorted order on first sight. Once
// maxLanguages ids are taken, new languages are not counted.
func (r *Runner) recordLanguages(languages map[string]int) {
	names := make([]string, 0, len(languages))
	for lang := range languages {
		names = append(names, lang)
	}

	slices.Sort(names)

	r.langMu.Lock()
	defer r.langMu.Unlock()

	for _, lang := range names {
		id, ok := r.langIDs[lang]
		if !ok {
			if len(r.langs) >= maxLanguages {
				continue
			}

			id = StageLanguageBase + telemetry.Stage(len(r.langs))

			if r.langIDs == nil {
				r.langIDs = make(map[string]telemetry.Stage)
			}

			r.langIDs[lang] = id
			r.langs = append(r.langs, lang)
		}

		r.opts.Tracer.AddCount(telemetry.Encode(int(StageLanguage), int(id), true), int64(languages[lang]))
	}
}

// tally aggregates worker results.
type tally struct {
	passes     atomic.Int64
	processed  atomic.Int64
	recomputed atomic.Int64
	reused     atomic.Int64
	edits      atomic.Int64
	tokens     atomic.Int64
	pruned     atomic.Int64
}

func measure(_ context.Context, line seq.Seq[string]) (Measure, error) {
	m := Measure{Tokens: line.Len()}

	for _, tok := range line.All() {
		m.Bytes += len(tok)
	}

	return m, nil
}

func (r *Runner) work(ctx context.Context, id int, seqs [][]string, window int, t *tally) error {
	rng := rand.New(rand.NewPCG(r.opts.Seed, uint64(id))) //nolint:gosec // not security sensitive

	positions := make([]int, window)
	for slot := range positions {
		positions[slot] = (id*window + slot) % len(seqs)
	}

	slots := pipeline.NewSlots(measure, pipeline.WithMemoTracer[string, Measure](r.opts.Tracer, StageMeasure))
	stream := pipeline.NewSlotStream(r.interner, slots, window)

	for pass := 0; pass <= r.opts.Iterations; pass++ {
		if pass > 0 {
			slot := rng.IntN(window)
			positions[slot] = rng.IntN(len(seqs))

			r.opts.Tracer.AddValue(StageEdit, min(slot, telemetry.MaxValue-1))
			t.edits.Add(1)
		}

		err := r.pass(ctx, stream, seqs, positions, t)
		if err != nil {
			return fmt.Errorf("worker %d pass %d: %w", id, pass, err)
		}

		err = r.maybePrune(ctx, t.passes.Add(1), t)
		if err != nil {
			return fmt.Errorf("worker %d: %w", id, err)
		}
	}

	return nil
}

func (r *Runner) pass(
	ctx context.Context,
	stream *pipeline.Stream[string, Measure],
	seqs [][]string,
	positions []int,
	t *tally,
) error {
	defer r.opts.Tracer.Trace(StagePass)()

	inputs := make(chan []string, len(positions))
	for _, p := range positions {
		inputs <- seqs[p]
	}

	close(inputs)

	var firstErr error

	for res := range stream.Process(ctx, inputs) {
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}

			continue
		}

		t.processed.Add(1)
		t.tokens.Add(int64(res.Output.Tokens))

		if res.Recomputed {
			t.recomputed.Add(1)
		} else {
			t.reused.Add(1)
		}
	}

	if firstErr != nil {
		return firstErr
	}

	return ctx.Err()
}

func (r *Runner) maybePrune(ctx context.Context, passes int64, t *tally) error {
	every := int64(r.opts.PruneEvery)
	if every <= 0 || passes%every != 0 {
		return nil
	}

	removed, err := r.interner.Prune(ctx)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	t.pruned.Add(int64(removed))
	r.opts.Tracer.AddValue(StagePrune, min(removed, telemetry.MaxValue-1))
	r.logger.DebugContext(ctx, "interner pruned", "removed", removed, "passes", passes)

	return nil
}
