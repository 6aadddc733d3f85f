package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/chartfang/pkg/mcp"
	"github.com/Sumatoshi-tech/chartfang/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		configPath string
		backendURL string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes chartfang as tools that AI agents can discover and invoke:
  - chartfang_top_series: rolling top-N series for a Last.fm user
  - chartfang_options: accepted chart types, timeframes and top-N choices

Logs are written to stderr as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := startEnv(configPath, observability.ModeMCP, debug)
			if err != nil {
				return err
			}
			defer rt.close()

			if backendURL != "" {
				rt.cfg.Backend.URL = backendURL
			}

			src, err := newSource(rt.cfg)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Builder: rt.newBuilder(src),
				Logger:  rt.logger(),
				Metrics: rt.red,
				Tracer:  rt.providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&backendURL, flagBackend, "", "chartfang backend URL; Last.fm is called directly when empty")
	cmd.Flags().BoolVar(&debug, flagDebug, false, "enable debug logging to stderr")

	return cmd
}
