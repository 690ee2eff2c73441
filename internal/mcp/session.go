package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/incrkit/internal/corpus"
	"github.com/Sumatoshi-tech/incrkit/internal/workload"
	"github.com/Sumatoshi-tech/incrkit/pkg/intern"
	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

// ErrBusy indicates a run is already in progress on the session.
var ErrBusy = errors.New("a workload run is already in progress")

// Session is the workload state shared by every tool call of one server.
// The interner and tracer persist across runs, so repeated runs over the
// same corpus show cache reuse.
type Session struct {
	runner *workload.Runner
	names  telemetry.NameTable

	run sync.Mutex

	mu   sync.Mutex
	last *workload.Summary
}

// NewSession creates a session. A nil opts.Tracer gets a fresh tracer and a
// nil names table uses the built-in stage names.
func NewSession(opts workload.Options, names telemetry.NameTable) *Session {
	if opts.Tracer == nil {
		opts.Tracer = telemetry.New()
	}

	if names == nil {
		names = telemetry.StageNames()
	}

	return &Session{
		runner: workload.New(opts),
		names:  names,
	}
}

// Runner returns the session's workload runner.
func (s *Session) Runner() *workload.Runner { return s.runner }

// Run loads paths, or generates a corpus from seed when paths is empty, and
// runs one workload. Concurrent calls fail with ErrBusy.
func (s *Session) Run(ctx context.Context, paths []string, seed uint64) (workload.Summary, error) {
	if !s.run.TryLock() {
		return workload.Summary{}, ErrBusy
	}
	defer s.run.Unlock()

	c, err := corpus.Open(ctx, seed, paths...)
	if err != nil {
		return workload.Summary{}, err
	}

	sum, err := s.runner.Run(ctx, c)
	if err != nil {
		return sum, err
	}

	s.mu.Lock()
	s.last = &sum
	s.mu.Unlock()

	return sum, nil
}

// Last returns the summary of the latest successful run.
func (s *Session) Last() (workload.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return workload.Summary{}, false
	}

	return *s.last, true
}

// Report renders the diagnostics comment, or only the counter table when
// countersOnly is set.
func (s *Session) Report(countersOnly bool) (string, error) {
	tracer := s.runner.Tracer()
	reporter := telemetry.NewReporter(s.runner.Names(s.names))

	var buf bytes.Buffer

	var err error
	if countersOnly {
		err = reporter.WriteCounts(&buf, tracer.Counts())
	} else {
		err = reporter.WriteDiagnostics(&buf, tracer)
	}

	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	tracer.IncrementCount(telemetry.StageDiagnosticsWritten)

	return buf.String(), nil
}

// CounterView is one labelled counter.
type CounterView struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// StatsView is the structured state returned by the stats tool.
type StatsView struct {
	Interner   intern.Stats      `json:"interner"`
	HitRate    float64           `json:"hit_rate"`
	Counters   []CounterView     `json:"counters"`
	RingEvents int               `json:"ring_events"`
	LastRun    *workload.Summary `json:"last_run,omitempty"`
}

// Stats snapshots the interner, tracer counters and the last run summary.
func (s *Session) Stats() StatsView {
	tracer := s.runner.Tracer()
	reporter := telemetry.NewReporter(s.runner.Names(s.names))
	st := s.runner.Interner().Stats()

	counts := tracer.Counts()
	views := make([]CounterView, 0, len(counts))

	for _, c := range counts {
		views = append(views, CounterView{ID: c.Key.ID(), Label: reporter.Label(c.Key), Value: c.Value})
	}

	view := StatsView{
		Interner:   st,
		HitRate:    st.HitRate(),
		Counters:   views,
		RingEvents: len(tracer.Events()),
	}

	if last, ok := s.Last(); ok {
		view.LastRun = &last
	}

	return view
}
