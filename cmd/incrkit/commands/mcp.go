package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/incrkit/internal/config"
	"github.com/Sumatoshi-tech/incrkit/internal/mcp"
	"github.com/Sumatoshi-tech/incrkit/internal/names"
	"github.com/Sumatoshi-tech/incrkit/internal/observability"
	"github.com/Sumatoshi-tech/incrkit/internal/workload"
	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		debug      bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server keeps one workload session (interner and tracer) for its lifetime
and exposes it as tools:
  - incrkit_run: Run the workload over absolute paths or a synthetic corpus
  - incrkit_report: Render the diagnostics report
  - incrkit_stats: Interner statistics, labelled counters and the last run summary`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			providers, err := initMCPObservability(cobraCmd.Context(), cfg, debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			red, redErr := observability.NewREDMetrics(providers.Meter)
			if redErr != nil {
				return redErr
			}

			session, err := newMCPSession(cfg, providers)
			if err != nil {
				return err
			}

			deps := mcp.ServerDeps{Logger: providers.Logger, Metrics: red, Tracer: providers.Tracer, Session: session}

			srv := mcp.NewServer(deps)

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: .incrkit.yaml in CWD or $HOME)")

	return cmd
}

func initMCPObservability(ctx context.Context, cfg *config.Config, debug bool) (observability.Providers, error) {
	obs, err := observabilityConfig(cfg, observability.ModeMCP)
	if err != nil {
		return observability.Providers{}, err
	}

	obs.LogJSON = true

	if debug {
		obs.LogLevel = slog.LevelDebug
	}

	return observability.Init(ctx, obs)
}

func newMCPSession(cfg *config.Config, providers observability.Providers) (*mcp.Session, error) {
	nameTable, err := names.LoadFile(cfg.Report.NamesFile)
	if err != nil {
		return nil, err
	}

	tracer := telemetry.New(
		telemetry.WithEnabled(cfg.Telemetry.Enabled),
		telemetry.WithCallCounts(cfg.Telemetry.CallCounts),
	)

	return mcp.NewSession(workload.Options{
		Workers:    cfg.Workload.Workers,
		Iterations: cfg.Workload.Iterations,
		Window:     cfg.Workload.Window,
		PruneEvery: cfg.Workload.PruneEvery,
		Caching:    cfg.Interner.Caching,
		Tracer:     tracer,
		Logger:     providers.Logger,
		Spans:      providers.Tracer,
	}, nameTable), nil
}
