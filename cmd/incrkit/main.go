// Package main provides the entry point for the incrkit CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/incrkit/cmd/incrkit/commands"
	"github.com/Sumatoshi-tech/incrkit/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "incrkit",
		Short: "incrkit - sequence interning and pipeline telemetry toolkit",
		Long: `incrkit drives an incremental pipeline over shared, interned token sequences
and reports what the interner and memo stages reused.

Commands:
  run       Run the concurrent workload and print the diagnostics report
  mcp       Serve the workload session as MCP tools on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "incrkit %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
