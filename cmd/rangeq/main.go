// Package main provides the entry point for the rangeq CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rangeq/cmd/rangeq/commands"
	"github.com/Sumatoshi-tech/rangeq/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "rangeq",
		Short: "rangeq - segment tree and interval tree queries",
		Long: `rangeq answers range queries over named series and interval sets.

Commands:
  segment   Range aggregation (sum, min, max, product) with point updates
  interval  Overlap and containment queries over closed intervals
  serve     HTTP JSON API
  mcp       Model Context Protocol server on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewSegmentCommand())
	rootCmd.AddCommand(commands.NewIntervalCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
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
			fmt.Fprintf(os.Stdout, "rangeq %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
