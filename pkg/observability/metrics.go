package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "chartfang.requests.total"
	metricRequestDuration  = "chartfang.request.duration.seconds"
	metricErrorsTotal      = "chartfang.errors.total"
	metricInflightRequests = "chartfang.inflight.requests"

	metricFetchTotal       = "chartfang.fetch.total"
	metricFetchFailures    = "chartfang.fetch.failures.total"
	metricFetchDuration    = "chartfang.fetch.duration.seconds"
	metricCacheHitsTotal   = "chartfang.cache.hits.total"
	metricCacheMissesTotal = "chartfang.cache.misses.total"

	attrOp     = "op"
	attrStatus = "status"
	attrKind   = "kind"

	// StatusOK and StatusError are the values of the status attribute.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request durations range from cached single-week lookups to multi-year
// overall charts fetched week by week.
var requestBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

var fetchBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// REDMetrics holds the rate, error and duration instruments for requests.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED instruments from mt.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &REDMetrics{
		requestsTotal:    reqTotal,
		requestDuration:  reqDuration,
		errorsTotal:      errTotal,
		inflightRequests: inflight,
	}, nil
}

// RecordRequest records a finished request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// FetchMetrics counts upstream chart fetches and cache lookups. It satisfies
// fetch.Observer.
type FetchMetrics struct {
	fetchTotal    metric.Int64Counter
	fetchFailures metric.Int64Counter
	fetchDuration metric.Float64Histogram
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
}

// NewFetchMetrics creates fetch instruments from mt.
func NewFetchMetrics(mt metric.Meter) (*FetchMetrics, error) {
	total, err := mt.Int64Counter(metricFetchTotal,
		metric.WithDescription("Weekly chart fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFetchTotal, err)
	}

	failures, err := mt.Int64Counter(metricFetchFailures,
		metric.WithDescription("Weekly chart fetches replaced by an empty period"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFetchFailures, err)
	}

	duration, err := mt.Float64Histogram(metricFetchDuration,
		metric.WithDescription("Weekly chart fetch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(fetchBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFetchDuration, err)
	}

	hits, err := mt.Int64Counter(metricCacheHitsTotal,
		metric.WithDescription("Weekly chart cache hits"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheHitsTotal, err)
	}

	misses, err := mt.Int64Counter(metricCacheMissesTotal,
		metric.WithDescription("Weekly chart cache misses"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheMissesTotal, err)
	}

	return &FetchMetrics{
		fetchTotal:    total,
		fetchFailures: failures,
		fetchDuration: duration,
		cacheHits:     hits,
		cacheMisses:   misses,
	}, nil
}

// ObserveFetch records one finished fetch.
func (fm *FetchMetrics) ObserveFetch(ctx context.Context, kind string, err error, duration time.Duration) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrStatus, status),
	)

	fm.fetchTotal.Add(ctx, 1, attrs)
	fm.fetchDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		fm.fetchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
	}
}

// ObserveCache records a cache lookup.
func (fm *FetchMetrics) ObserveCache(ctx context.Context, kind string, hit bool) {
	attrs := metric.WithAttributes(attribute.String(attrKind, kind))

	if hit {
		fm.cacheHits.Add(ctx, 1, attrs)

		return
	}

	fm.cacheMisses.Add(ctx, 1, attrs)
}
