// Package main provides the entry point for the chartfang CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/chartfang/cmd/chartfang/commands"
	"github.com/Sumatoshi-tech/chartfang/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chartfang",
		Short: "Rolling top-N charts from Last.fm listening history",
		Long: `Chartfang rebuilds rolling top-N rankings from weekly Last.fm charts.

Commands:
  chart     Build a rolling chart for one user
  serve     Run the chart backend HTTP service
  mcp       Start the MCP server for AI agents`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewChartCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}
