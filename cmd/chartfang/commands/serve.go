package commands

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/chartfang/internal/server"
	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/observability"
)

// NewServeCommand creates the backend server command.
func NewServeCommand() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chart backend HTTP service",
		Long: `Serve Last.fm weekly charts and aggregated rolling series over HTTP.

Routes:
  GET /get_weekly_chart   one week's chart (username, chart_type, from_date, to_date)
  GET /get_info           user profile (username)
  GET /api/v1/series      rolling top-N series (username, chart_type, timeframe, top)
  GET /chart              the same series as an HTML chart (plus theme)
  GET /healthz, /readyz, /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := startEnv(configPath, observability.ModeServe, debug)
			if err != nil {
				return err
			}
			defer rt.close()

			upstream, err := lastfm.NewClient(lastfm.Config{
				APIKey:  rt.cfg.LastFM.APIKey,
				BaseURL: rt.cfg.LastFM.BaseURL,
				Timeout: rt.cfg.LastFM.Timeout,
			})
			if err != nil {
				return err
			}

			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}

			srv, err := server.New(rt.cfg, server.Deps{
				Upstream:       upstream,
				Logger:         rt.logger(),
				Tracer:         rt.providers.Tracer,
				RED:            rt.red,
				FetchMetrics:   rt.fetch,
				MetricsHandler: rt.providers.MetricsHandler,
			})
			if err != nil {
				return err
			}

			return srv.Run(cmd.Context())
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&debug, flagDebug, false, "enable debug logging and gin debug mode")

	return cmd
}
