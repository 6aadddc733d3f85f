package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/chartfang/pkg/config"
	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/observability"
	"github.com/Sumatoshi-tech/chartfang/pkg/plotpage"
	"github.com/Sumatoshi-tech/chartfang/pkg/render"
	"github.com/Sumatoshi-tech/chartfang/pkg/report"
	"github.com/Sumatoshi-tech/chartfang/pkg/timeframe"
)

const outputFileMode = 0o644

type chartOptions struct {
	configPath string
	kind       string
	timeframe  string
	top        int
	format     string
	output     string
	backendURL string
	workers    int
	theme      string
	noColor    bool
	debug      bool
}

// NewChartCommand creates the chart command.
func NewChartCommand() *cobra.Command {
	opts := &chartOptions{}

	cmd := &cobra.Command{
		Use:   "chart <username>",
		Short: "Build a rolling top-N chart for a Last.fm user",
		Long: `Fetch every weekly chart of the selected timeframe, sum each week over a
sliding window and keep the top entries of every week.

Timeframes: ` + joinTimeframes() + `
Chart types: artist, album, track

Weeks that cannot be fetched are charted as empty and listed in the output.`,
		Example: `  chartfang chart rj --timeframe last-3-months --top 10
  chartfang chart rj --kind track --format plot --output rj.html
  chartfang chart rj --backend http://localhost:8080 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChart(cmd, args[0], opts)
		},
	}

	addConfigFlag(cmd, &opts.configPath)
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "chart type: artist, album or track (default from config)")
	cmd.Flags().StringVarP(&opts.timeframe, "timeframe", "t", "", "timeframe (default from config)")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 0, fmt.Sprintf("positions per week, e.g. %v (default from config)", report.TopChoices))
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(render.FormatText), "output format: text, json, yaml or plot")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&opts.backendURL, flagBackend, "", "chartfang backend URL; Last.fm is called directly when empty")
	cmd.Flags().IntVar(&opts.workers, flagWorkers, 0, "concurrent weekly fetches (default from config)")
	cmd.Flags().StringVar(&opts.theme, "theme", string(plotpage.ThemeDark), "plot theme: dark or light")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable coloured text output")
	cmd.Flags().BoolVar(&opts.debug, flagDebug, false, "enable debug logging to stderr")

	return cmd
}

func joinTimeframes() string {
	names := make([]string, 0, len(timeframe.All()))
	for _, tf := range timeframe.All() {
		names = append(names, string(tf))
	}

	return strings.Join(names, ", ")
}

func runChart(cmd *cobra.Command, user string, opts *chartOptions) error {
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	theme, err := plotpage.ParseTheme(opts.theme)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	applyChartOverrides(cfg, opts)

	rt, err := startEnvWithConfig(cfg, observability.ModeCLI, opts.debug)
	if err != nil {
		return err
	}
	defer rt.close()

	src, err := newSource(cfg)
	if err != nil {
		return err
	}

	ctx, span := rt.providers.Tracer.Start(cmd.Context(), "chartfang.cli.chart")
	defer span.End()

	rep, err := rt.newBuilder(src).Build(ctx, report.Request{
		Subject:   user,
		Kind:      lastfm.ChartKind(strings.ToLower(cfg.Chart.Kind)),
		Timeframe: timeframe.Timeframe(strings.ToLower(cfg.Chart.Timeframe)),
		TopN:      cfg.Chart.Top,
	})
	if err != nil {
		return err
	}

	if len(rep.Failures) > 0 {
		rt.logger().WarnContext(ctx, "some weeks could not be fetched", "failed", len(rep.Failures), "weeks", len(rep.Periods))
	}

	return writeReport(cmd.OutOrStdout(), opts.output, rep, format, render.Options{Theme: theme, NoColor: opts.noColor})
}

func applyChartOverrides(cfg *config.Config, opts *chartOptions) {
	if opts.kind != "" {
		cfg.Chart.Kind = opts.kind
	}

	if opts.timeframe != "" {
		cfg.Chart.Timeframe = opts.timeframe
	}

	if opts.top != 0 {
		cfg.Chart.Top = opts.top
	}

	if opts.backendURL != "" {
		cfg.Backend.URL = opts.backendURL
	}

	if opts.workers > 0 {
		cfg.Fetch.Workers = opts.workers
	}
}

func writeReport(stdout io.Writer, output string, rep *report.Report, format render.Format, opts render.Options) error {
	if output == "" {
		return render.Render(stdout, rep, format, opts)
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFileMode)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	opts.NoColor = true

	renderErr := render.Render(f, rep, format, opts)
	closeErr := f.Close()

	if renderErr != nil {
		return renderErr
	}

	if closeErr != nil {
		return fmt.Errorf("close output: %w", closeErr)
	}

	fmt.Fprintf(stdout, "wrote %s\n", output)

	return nil
}
