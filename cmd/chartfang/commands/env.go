// Package commands implements the chartfang CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/chartfang/pkg/backend"
	"github.com/Sumatoshi-tech/chartfang/pkg/config"
	"github.com/Sumatoshi-tech/chartfang/pkg/fetch"
	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/observability"
	"github.com/Sumatoshi-tech/chartfang/pkg/report"
	"github.com/Sumatoshi-tech/chartfang/pkg/version"
)

const (
	flagConfig  = "config"
	flagBackend = "backend"
	flagWorkers = "workers"
	flagDebug   = "debug"
)

// chartSource supplies weekly snapshots and registration dates.
type chartSource interface {
	fetch.Fetcher
	report.InfoSource
}

// env is everything a command needs after startup.
type env struct {
	cfg       *config.Config
	providers observability.Providers
	red       *observability.REDMetrics
	fetch     *observability.FetchMetrics
}

func (rt *env) logger() *slog.Logger {
	return rt.providers.Logger
}

func (rt *env) close() {
	err := rt.providers.Shutdown(context.Background())
	if err != nil {
		rt.logger().Warn("observability shutdown failed", "error", err)
	}
}

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, flagConfig, "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/chartfang/config.yaml)")
}

// startEnv loads configuration and initializes observability for mode.
func startEnv(configPath string, mode observability.AppMode, debug bool) (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	return startEnvWithConfig(cfg, mode, debug)
}

func startEnvWithConfig(cfg *config.Config, mode observability.AppMode, debug bool) (*env, error) {
	obsCfg, err := observabilityConfig(cfg, mode, debug)
	if err != nil {
		return nil, err
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	rt := &env{cfg: cfg, providers: providers}

	rt.red, err = observability.NewREDMetrics(providers.Meter)
	if err != nil {
		rt.close()

		return nil, err
	}

	rt.fetch, err = observability.NewFetchMetrics(providers.Meter)
	if err != nil {
		rt.close()

		return nil, err
	}

	return rt, nil
}

func observabilityConfig(cfg *config.Config, mode observability.AppMode, debug bool) (observability.Config, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Get().Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogJSON = cfg.Logging.Format == "json" || mode == observability.ModeMCP

	level, err := observability.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg.LogLevel = level

	if debug {
		obsCfg.LogLevel = slog.LevelDebug
	}

	return obsCfg, nil
}

// newSource talks to the chartfang backend when one is configured and to
// Last.fm directly otherwise.
func newSource(cfg *config.Config) (chartSource, error) {
	if cfg.Backend.URL != "" {
		client, err := backend.NewClient(backend.Config{BaseURL: cfg.Backend.URL, Timeout: cfg.Backend.Timeout})
		if err != nil {
			return nil, fmt.Errorf("backend client: %w", err)
		}

		return client, nil
	}

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:  cfg.LastFM.APIKey,
		BaseURL: cfg.LastFM.BaseURL,
		Timeout: cfg.LastFM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("last.fm client (set CHARTFANG_LASTFM_API_KEY or --%s): %w", flagBackend, err)
	}

	return client, nil
}

// newBuilder wires a report builder around src with the environment's telemetry.
func (rt *env) newBuilder(src chartSource) *report.Builder {
	collector := fetch.NewCollector(src,
		fetch.WithWorkers(rt.cfg.Fetch.Workers),
		fetch.WithLogger(rt.logger()),
		fetch.WithObserver(rt.fetch),
	)

	return report.NewBuilder(collector, src,
		report.WithTracer(rt.providers.Tracer),
		report.WithLogger(rt.logger()),
	)
}
