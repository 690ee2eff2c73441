// Package commands implements CLI command handlers for incrkit.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/incrkit/internal/config"
	"github.com/Sumatoshi-tech/incrkit/internal/corpus"
	"github.com/Sumatoshi-tech/incrkit/internal/names"
	"github.com/Sumatoshi-tech/incrkit/internal/observability"
	"github.com/Sumatoshi-tech/incrkit/internal/workload"
	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

const (
	runOperation = "workload.run"

	diagnosticsCloseTimeout = 5 * time.Second
	internerMetricName      = "tokens"
)

type corpusLoader func(ctx context.Context, seed uint64, paths ...string) (*corpus.Corpus, error)

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	configPath      string
	workers         int
	iterations      int
	window          int
	seed            uint64
	noCache         bool
	format          string
	namesFile       string
	diagnosticsAddr string
	noColor         bool

	loadCorpus corpusLoader
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(corpus.Open)
}

func newRunCommandWithDeps(loader corpusLoader) *cobra.Command {
	rc := &RunCommand{loadCorpus: loader}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run the incremental workload and print diagnostics",
		Long: `Run the concurrent incremental workload over corpus files or directories.

Each line is tokenized and interned; workers edit a sliding window of lines
and rerun a memoized measure stage, so unchanged lines are reused. Without
paths a deterministic synthetic corpus is generated.`,
		RunE: rc.run,
	}

	cmd.Flags().StringVar(&rc.configPath, "config", "", "Config file path (default: .incrkit.yaml in CWD or $HOME)")
	cmd.Flags().IntVar(&rc.workers, "workers", config.DefaultWorkloadWorkers, "Number of concurrent workers (0 = use CPU count)")
	cmd.Flags().IntVar(&rc.iterations, "iterations", config.DefaultWorkloadIterations, "Edit passes per worker after the initial pass")
	cmd.Flags().IntVar(&rc.window, "window", config.DefaultWorkloadWindow, "Lines tracked per worker (0 = whole corpus)")
	cmd.Flags().Uint64Var(&rc.seed, "seed", 0, "Seed for the synthetic corpus and edits (0 = default)")
	cmd.Flags().BoolVar(&rc.noCache, "no-cache", false, "Disable interning; every lookup allocates")
	cmd.Flags().StringVar(&rc.format, "format", config.DefaultReportFormat, "Report format: text, table, plot")
	cmd.Flags().StringVar(&rc.namesFile, "names", "", "YAML file with extra stage names")
	cmd.Flags().StringVar(&rc.diagnosticsAddr, "diagnostics-addr", "", "Serve /healthz, /readyz, /metrics and diagnostics at this address")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored status output")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := rc.loadConfig(cmd)
	if err != nil {
		return err
	}

	obsCfg, err := observabilityConfig(cfg, observability.ModeCLI)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	providers, err := observability.Init(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	nameTable, err := names.LoadFile(cfg.Report.NamesFile)
	if err != nil {
		return err
	}

	c, err := rc.loadCorpus(ctx, rc.seed, args...)
	if err != nil {
		return err
	}

	tracer := telemetry.New(
		telemetry.WithEnabled(cfg.Telemetry.Enabled),
		telemetry.WithCallCounts(cfg.Telemetry.CallCounts),
	)

	runner := workload.New(workload.Options{
		Workers:    cfg.Workload.Workers,
		Iterations: cfg.Workload.Iterations,
		Window:     cfg.Workload.Window,
		PruneEvery: cfg.Workload.PruneEvery,
		Caching:    cfg.Interner.Caching,
		Seed:       rc.seed,
		Tracer:     tracer,
		Logger:     providers.Logger,
		Spans:      providers.Tracer,
	})

	reporter := func() *telemetry.Reporter {
		return telemetry.NewReporter(runner.Names(nameTable))
	}

	status := newStatusPrinter(cmd.ErrOrStderr(), rc.noColor)

	if cfg.Observability.DiagnosticsAddr != "" {
		diag, diagErr := startDiagnostics(ctx, cfg.Observability.DiagnosticsAddr, runner, reporter, providers.Logger)
		if diagErr != nil {
			return diagErr
		}

		defer closeDiagnostics(ctx, diag, providers.Logger)

		status.info("diagnostics listening on http://%s", diag.Addr())
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create run metrics: %w", err)
	}

	done := red.Track(ctx, runOperation)
	sum, err := runner.Run(ctx, c)
	done(err)

	if err != nil {
		status.fail("workload failed after %d passes", sum.Passes)

		return err
	}

	status.summary(sum)

	err = writeReport(cmd.OutOrStdout(), cfg.Report.Format, reporter(), tracer)
	if err != nil {
		return err
	}

	tracer.IncrementCount(telemetry.StageDiagnosticsWritten)

	return nil
}

// loadConfig reads the config file and applies explicitly set flags on top.
func (rc *RunCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("workers") {
		cfg.Workload.Workers = rc.workers
	}

	if flags.Changed("iterations") {
		cfg.Workload.Iterations = rc.iterations
	}

	if flags.Changed("window") {
		cfg.Workload.Window = rc.window
	}

	if rc.noCache {
		cfg.Interner.Caching = false
	}

	if flags.Changed("format") {
		cfg.Report.Format = strings.ToLower(rc.format)
	}

	if flags.Changed("names") {
		cfg.Report.NamesFile = rc.namesFile
	}

	if flags.Changed("diagnostics-addr") {
		cfg.Observability.DiagnosticsAddr = rc.diagnosticsAddr
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

func startDiagnostics(
	ctx context.Context,
	addr string,
	runner *workload.Runner,
	reporter func() *telemetry.Reporter,
	logger *slog.Logger,
) (*observability.DiagnosticsServer, error) {
	tracer := runner.Tracer()

	diag, err := observability.NewDiagnosticsServer(ctx, addr, observability.DiagnosticsOptions{
		Checks: []observability.ReadyCheck{{Name: "workload", Check: runner.Ready}},
		Report: func(w io.Writer) error {
			return reporter().WriteDiagnostics(w, tracer)
		},
		Register: func(mt metric.Meter) error {
			_, internErr := observability.NewInternMetrics(mt, internerMetricName, runner.Interner())
			_, telemetryErr := observability.NewTelemetryMetrics(mt, tracer, reporter())

			return errors.Join(internErr, telemetryErr)
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("start diagnostics server: %w", err)
	}

	return diag, nil
}

func closeDiagnostics(ctx context.Context, diag *observability.DiagnosticsServer, logger *slog.Logger) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsCloseTimeout)
	defer cancel()

	err := diag.Close(closeCtx)
	if err != nil {
		logger.Warn("diagnostics shutdown failed", "error", err)
	}
}
