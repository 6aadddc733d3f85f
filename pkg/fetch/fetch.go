// Package fetch acquires one snapshot per span, concurrently and with per-span
// failure isolation.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
	"github.com/Sumatoshi-tech/chartfang/pkg/span"
)

// DefaultWorkers bounds concurrent fetches when no limit is configured.
const DefaultWorkers = 8

// Request identifies what to fetch for one span.
type Request struct {
	Subject string
	Kind    string
	Span    span.Span
}

// Fetcher retrieves the raw counts for one span.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, req Request) (rolling.Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (rolling.Snapshot, error)

// FetchSnapshot calls f.
func (f FetcherFunc) FetchSnapshot(ctx context.Context, req Request) (rolling.Snapshot, error) {
	return f(ctx, req)
}

// Failure records a span whose fetch failed and was replaced by an empty snapshot.
type Failure struct {
	Span span.Span
	Err  error
}

// Error implements error.
func (f Failure) Error() string {
	return fmt.Sprintf("fetch %s: %v", f.Span, f.Err)
}

// Unwrap returns the underlying fetch error.
func (f Failure) Unwrap() error {
	return f.Err
}

// Result holds one snapshot per requested span, in span order, plus the
// failures that were substituted with empty snapshots.
type Result struct {
	Snapshots []rolling.Snapshot
	Failures  []Failure
}

// Err joins all failures, or returns nil.
func (r Result) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}

	return errors.Join(errs...)
}

// Observer is notified about each finished fetch.
type Observer interface {
	ObserveFetch(ctx context.Context, kind string, err error, duration time.Duration)
}

// Collector fans fetches out over a bounded worker pool.
type Collector struct {
	fetcher  Fetcher
	workers  int
	logger   *slog.Logger
	observer Observer
}

// Option configures a Collector.
type Option func(*Collector)

// WithWorkers sets the maximum number of concurrent fetches.
func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger used to report failed spans.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a fetch observer, e.g. for metrics.
func WithObserver(o Observer) Option {
	return func(c *Collector) {
		c.observer = o
	}
}

// NewCollector creates a Collector around fetcher.
func NewCollector(fetcher Fetcher, opts ...Option) *Collector {
	c := &Collector{
		fetcher: fetcher,
		workers: DefaultWorkers,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Collect fetches every span. A failed span yields an empty snapshot keyed by
// the span's end and a Failure entry; the other spans are unaffected.
// The returned snapshots are always keyed by their span's end.
// Only cancellation of ctx aborts the whole collection.
func (c *Collector) Collect(ctx context.Context, subject, kind string, spans []span.Span) (Result, error) {
	snapshots := make([]rolling.Snapshot, len(spans))
	errs := make([]error, len(spans))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)

	for i, s := range spans {
		if groupCtx.Err() != nil {
			break
		}

		group.Go(func() error {
			req := Request{Subject: subject, Kind: kind, Span: s}
			start := time.Now()

			snapshot, err := c.fetcher.FetchSnapshot(groupCtx, req)

			if c.observer != nil {
				c.observer.ObserveFetch(groupCtx, kind, err, time.Since(start))
			}

			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}

				errs[i] = err
				snapshots[i] = rolling.EmptySnapshot(s.End)

				return nil
			}

			snapshot.PeriodEnd = s.End
			if snapshot.Entries == nil {
				snapshot.Entries = []rolling.Entry{}
			}

			snapshots[i] = snapshot

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return Result{}, fmt.Errorf("collect snapshots: %w", err)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, fmt.Errorf("collect snapshots: %w", ctxErr)
	}

	result := Result{Snapshots: snapshots}

	for i, err := range errs {
		if err == nil {
			continue
		}

		c.logger.WarnContext(ctx, "snapshot fetch failed, substituting empty period",
			"subject", subject,
			"kind", kind,
			"span_start", spans[i].Start,
			"span_end", spans[i].End,
			"error", err,
		)

		result.Failures = append(result.Failures, Failure{Span: spans[i], Err: err})
	}

	return result, nil
}
