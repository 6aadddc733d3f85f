// Package server implements the chartfang backend: a gin HTTP service that
// proxies Last.fm weekly charts and serves aggregated rolling series.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/raulk/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/chartfang/pkg/backend"
	"github.com/Sumatoshi-tech/chartfang/pkg/config"
	"github.com/Sumatoshi-tech/chartfang/pkg/fetch"
	"github.com/Sumatoshi-tech/chartfang/pkg/observability"
	"github.com/Sumatoshi-tech/chartfang/pkg/report"
)

const (
	tracerName      = "chartfang/server"
	shutdownTimeout = 10 * time.Second
	corsMaxAge      = 12 * time.Hour
)

var (
	// ErrNoUpstream is returned by New without an upstream chart service.
	ErrNoUpstream = errors.New("server requires an upstream chart service")

	errDraining = errors.New("server is shutting down")
)

// Deps holds the collaborators of a Server. Only Upstream is required.
type Deps struct {
	Upstream       Upstream
	Clock          clock.Clock
	Logger         *slog.Logger
	Tracer         trace.Tracer
	RED            *observability.REDMetrics
	FetchMetrics   *observability.FetchMetrics
	MetricsHandler http.Handler
}

// Server is the backend HTTP service.
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	charts   *Charts
	builder  *report.Builder
	logger   *slog.Logger
	draining atomic.Bool
}

// New builds the gin engine and every route.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Upstream == nil {
		return nil, ErrNoUpstream
	}

	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}

	chartOpts := []ChartsOption{WithChartsClock(deps.Clock)}
	if cfg.Cache.Enabled {
		chartOpts = append(chartOpts, WithChartCache(cfg.Cache.MaxEntries))
	}

	fetchOpts := []fetch.Option{fetch.WithWorkers(cfg.Fetch.Workers), fetch.WithLogger(deps.Logger)}
	if deps.FetchMetrics != nil {
		chartOpts = append(chartOpts, WithCacheObserver(deps.FetchMetrics))
		fetchOpts = append(fetchOpts, fetch.WithObserver(deps.FetchMetrics))
	}

	charts := NewCharts(deps.Upstream, chartOpts...)

	s := &Server{
		cfg:    cfg,
		charts: charts,
		builder: report.NewBuilder(fetch.NewCollector(charts, fetchOpts...), charts,
			report.WithClock(deps.Clock),
			report.WithTracer(deps.Tracer),
			report.WithLogger(deps.Logger),
		),
		logger: deps.Logger,
	}

	s.engine = s.routes(deps)

	return s, nil
}

func (s *Server) routes(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(observability.GinMiddleware(deps.Tracer, deps.RED))
	engine.Use(s.accessLog())

	if len(s.cfg.Server.CORSOrigins) > 0 {
		engine.Use(cors.New(corsConfig(s.cfg.Server.CORSOrigins)))
	}

	engine.GET(backend.PathWeeklyChart, s.getWeeklyChart)
	engine.GET(backend.PathInfo, s.getInfo)
	engine.GET(backend.PathSeries, s.getSeries)
	engine.GET(backend.PathChart, s.getChart)

	engine.GET(backend.PathHealth, gin.WrapH(observability.HealthHandler()))
	engine.GET(backend.PathReady, gin.WrapH(observability.ReadyHandler(s.ready)))

	if deps.MetricsHandler != nil {
		engine.GET(backend.PathMetrics, gin.WrapH(deps.MetricsHandler))
	}

	return engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Token", "traceparent"},
		ExposeHeaders: []string{"Content-Type"},
		MaxAge:        corsMaxAge,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true

			return cfg
		}
	}

	cfg.AllowOrigins = origins

	return cfg
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}

		s.logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"errors", c.Errors.String(),
		)
	}
}

func (s *Server) ready(context.Context) error {
	if s.draining.Load() {
		return errDraining
	}

	return nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Charts returns the cached chart reader behind the routes.
func (s *Server) Charts() *Charts {
	return s.charts
}

// Run serves on the configured address until ctx is canceled, then drains
// in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.InfoContext(ctx, "backend listening", "addr", srv.Addr)

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	s.draining.Store(true)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.logger.InfoContext(ctx, "backend shutting down")

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if stats, ok := s.charts.CacheStats(); ok {
		s.logger.InfoContext(shutdownCtx, "chart cache",
			"entries", stats.Entries,
			"hits", stats.Hits,
			"misses", stats.Misses,
			"hit_rate", stats.HitRate(),
		)
	}

	return nil
}
