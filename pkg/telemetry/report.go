package telemetry

import (
	"fmt"
	"io"
	"strconv"
	"time"
)

// Reporter renders counters and ring events as text, resolving ids and
// mapped values through a [NameTable].
type Reporter struct {
	names NameTable
}

// NewReporter creates a Reporter. A nil table renders every id as "".
func NewReporter(names NameTable) *Reporter {
	return &Reporter{names: names}
}

// Label returns "name" for a bare id, or "name (value)" when the key carries
// a value. Mapped values resolve through the name table; anything else, or a
// mapped value with no entry, renders as its decimal number.
func (r *Reporter) Label(k Key) string {
	name := r.names[k.ID()]
	if !k.HasValue() {
		return name
	}

	value := k.Value()

	valueText, ok := "", false
	if k.Mapped() {
		valueText, ok = r.names[value]
	}

	if !ok {
		valueText = strconv.Itoa(value)
	}

	return name + " (" + valueText + ")"
}

// WriteCounts writes one "[id] label: count" line per counter, in the order
// given. Use [Counters.Snapshot] for id-then-key order.
func (r *Reporter) WriteCounts(w io.Writer, counts []Count) error {
	lw := &lineWriter{w: w}

	for _, c := range counts {
		lw.printf("[%03d] %s: %d\n", c.Key.ID(), r.Label(c.Key), c.Value)
	}

	return lw.err
}

// WriteTrace writes one "timestamp [id] label" line per event. Timestamps are
// start plus the event offset, in UTC RFC 3339 with nanoseconds.
func (r *Reporter) WriteTrace(w io.Writer, start time.Time, events []Event) error {
	lw := &lineWriter{w: w}

	for _, ev := range events {
		ts := start.Add(ev.Elapsed).UTC().Format(time.RFC3339Nano)
		lw.printf("%s [%03d] %s\n", ts, ev.Key.ID(), r.Label(ev.Key))
	}

	return lw.err
}

// WriteDiagnostics writes the tracer's counters and trace log wrapped in a
// block comment, ready to embed in generated source.
func (r *Reporter) WriteDiagnostics(w io.Writer, t *Tracer) error {
	lw := &lineWriter{w: w}

	lw.printf("/* Diagnostics\nCounters:\n")

	if lw.err == nil {
		lw.err = r.WriteCounts(w, t.Counts())
	}

	lw.printf("\nTrace Log:\n")

	if lw.err == nil {
		lw.err = r.WriteTrace(w, t.Start(), t.Events())
	}

	lw.printf("*/\n")

	if lw.err != nil {
		return fmt.Errorf("write diagnostics: %w", lw.err)
	}

	return nil
}

// lineWriter keeps the first write error and skips later writes.
type lineWriter struct {
	w   io.Writer
	err error
}

func (lw *lineWriter) printf(format string, args ...any) {
	if lw.err != nil {
		return
	}

	_, lw.err = fmt.Fprintf(lw.w, format, args...)
}
