package observability_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/chartfang/pkg/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinMiddleware_SpansAndMetrics(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	mp, reader := testMeterProvider()

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(observability.GinMiddleware(tp.Tracer("test"), red))
	engine.GET("/users/:name", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("name"))
	})
	engine.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("upstream down"))
		c.Status(http.StatusBadGateway)
	})

	for _, path := range []string{"/users/alice", "/boom"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "GET /users/:name", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "GET /boom", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Len(t, spans[1].Events(), 1)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumValue(t, findMetric(rm, "chartfang.requests.total")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "chartfang.errors.total")))
}

func TestGinMiddleware_UnmatchedRouteWithoutMetrics(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	engine := gin.New()
	engine.Use(observability.GinMiddleware(tp.Tracer("test"), nil))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET unmatched", spans[0].Name())
}

func TestHealthHandlers(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	observability.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	ready := observability.ReadyHandler(
		func(context.Context) error { return nil },
		func(context.Context) error { return errors.New("api key missing") },
	)

	rec = httptest.NewRecorder()
	ready.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","error":"api key missing"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	observability.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInit_PrometheusHandlerServesInstruments(t *testing.T) {
	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeServe

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, providers.Shutdown(context.Background()))
	})

	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Logger)

	red, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "/chart", observability.StatusOK, 0)

	srv := httptest.NewServer(providers.MetricsHandler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL) //nolint:noctx // test server.
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "chartfang_requests_total"), "metrics body lacks request counter")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, observability.ParseOTLPHeaders(" a = 1 ,b=2"))
}
