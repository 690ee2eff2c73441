package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/incrkit/internal/config"
	"github.com/Sumatoshi-tech/incrkit/internal/workload"
	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

const (
	plotPageTitle = "incrkit diagnostics"
	plotHeight    = "600px"
	xAxisRotate   = 45
	percentScale  = 100
)

// writeReport renders the tracer state in the configured format.
func writeReport(w io.Writer, format string, reporter *telemetry.Reporter, tracer *telemetry.Tracer) error {
	switch format {
	case config.FormatTable:
		return writeTable(w, reporter, tracer.Counts())
	case config.FormatPlot:
		return writePlot(w, reporter, tracer.Counts())
	default:
		return reporter.WriteDiagnostics(w, tracer)
	}
}

func writeTable(w io.Writer, reporter *telemetry.Reporter, counts []telemetry.Count) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("Counters")
	tbl.AppendHeader(table.Row{"ID", "Counter", "Count"})

	var total int64

	for _, c := range counts {
		tbl.AppendRow(table.Row{c.Key.ID(), reporter.Label(c.Key), humanize.Comma(c.Value)})
		total += c.Value
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d counters", len(counts)), humanize.Comma(total)})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

func writePlot(w io.Writer, reporter *telemetry.Reporter, counts []telemetry.Count) error {
	labels := make([]string, len(counts))
	data := make([]opts.BarData, len(counts))

	for i, c := range counts {
		labels[i] = reporter.Label(c.Key)
		data[i] = opts.BarData{Value: c.Value}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: plotPageTitle, Width: "100%", Height: plotHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Counters", Subtitle: fmt.Sprintf("%d counters", len(counts)), Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate, Interval: "0"}}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("Count", data)

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

// statusPrinter writes colored one-line status messages.
type statusPrinter struct {
	w    io.Writer
	ok   *color.Color
	note *color.Color
	bad  *color.Color
}

func newStatusPrinter(w io.Writer, noColor bool) *statusPrinter {
	sp := &statusPrinter{
		w:    w,
		ok:   color.New(color.FgGreen),
		note: color.New(color.FgCyan),
		bad:  color.New(color.FgRed),
	}

	if noColor {
		sp.ok.DisableColor()
		sp.note.DisableColor()
		sp.bad.DisableColor()
	}

	return sp
}

func (sp *statusPrinter) info(format string, args ...any) {
	sp.note.Fprintf(sp.w, format+"\n", args...)
}

func (sp *statusPrinter) fail(format string, args ...any) {
	sp.bad.Fprintf(sp.w, format+"\n", args...)
}

func (sp *statusPrinter) summary(sum workload.Summary) {
	sp.ok.Fprintf(sp.w, "workload finished in %s\n", sum.Elapsed.Round(time.Millisecond))
	sp.note.Fprintf(sp.w, "  workers %d, window %d, %s sequences, %s passes\n",
		sum.Workers, sum.Window, humanize.Comma(int64(sum.Sequences)), humanize.Comma(sum.Passes))
	sp.note.Fprintf(sp.w, "  processed %s lines, reused %s (%.1f%%), recomputed %s\n",
		humanize.Comma(sum.Processed), humanize.Comma(sum.Reused), sum.ReuseRate()*percentScale, humanize.Comma(sum.Recomputed))
	sp.note.Fprintf(sp.w, "  interner hits %s, misses %s (%.1f%% hit rate), pruned %s\n",
		humanize.Comma(sum.Stats.Hits), humanize.Comma(sum.Stats.Misses), sum.Stats.HitRate()*percentScale, humanize.Comma(sum.Stats.Pruned))
}
