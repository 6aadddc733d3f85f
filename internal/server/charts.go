package server

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/raulk/clock"

	"github.com/Sumatoshi-tech/chartfang/pkg/cache"
	"github.com/Sumatoshi-tech/chartfang/pkg/fetch"
	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
)

// Upstream is the chart service the backend proxies, normally *lastfm.Client.
type Upstream interface {
	WeeklyChart(ctx context.Context, user string, kind lastfm.ChartKind, from, to time.Time) ([]rolling.Entry, error)
	UserInfo(ctx context.Context, user string) (lastfm.UserInfo, error)
}

// CacheObserver is notified about every weekly chart cache lookup.
type CacheObserver interface {
	ObserveCache(ctx context.Context, kind string, hit bool)
}

type chartKey struct {
	user     string
	kind     lastfm.ChartKind
	from, to int64
}

// Charts reads weekly charts from an Upstream through an optional LRU cache.
// A week's chart no longer changes once the week is over, so only charts
// whose range ended before now are cached.
type Charts struct {
	upstream Upstream
	cache    *cache.LRU[chartKey, []rolling.Entry]
	clock    clock.Clock
	observer CacheObserver
}

// ChartsOption configures Charts.
type ChartsOption func(*Charts)

// WithChartCache enables caching of up to maxEntries weekly charts.
func WithChartCache(maxEntries int) ChartsOption {
	return func(c *Charts) {
		c.cache = cache.NewLRU[chartKey, []rolling.Entry](maxEntries)
	}
}

// WithChartsClock sets the clock that decides whether a chart is final.
func WithChartsClock(clk clock.Clock) ChartsOption {
	return func(c *Charts) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithCacheObserver registers a cache lookup observer.
func WithCacheObserver(o CacheObserver) ChartsOption {
	return func(c *Charts) {
		c.observer = o
	}
}

// NewCharts wraps upstream.
func NewCharts(upstream Upstream, opts ...ChartsOption) *Charts {
	c := &Charts{upstream: upstream, clock: clock.New()}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WeeklyChart returns the chart for user between from and to.
func (c *Charts) WeeklyChart(ctx context.Context, user string, kind lastfm.ChartKind, from, to time.Time) ([]rolling.Entry, error) {
	cacheable := c.cache != nil && to.Before(c.clock.Now())
	key := chartKey{user: strings.ToLower(strings.TrimSpace(user)), kind: kind, from: from.Unix(), to: to.Unix()}

	if cacheable {
		entries, ok := c.cache.Get(key)
		c.observe(ctx, kind, ok)

		if ok {
			return slices.Clone(entries), nil
		}
	}

	entries, err := c.upstream.WeeklyChart(ctx, user, kind, from, to)
	if err != nil {
		return nil, err
	}

	if cacheable {
		c.cache.Put(key, slices.Clone(entries))
	}

	return entries, nil
}

// FetchSnapshot implements fetch.Fetcher.
func (c *Charts) FetchSnapshot(ctx context.Context, req fetch.Request) (rolling.Snapshot, error) {
	kind, err := lastfm.ParseKind(req.Kind)
	if err != nil {
		return rolling.Snapshot{}, err
	}

	entries, err := c.WeeklyChart(ctx, req.Subject, kind, req.Span.Start, req.Span.End)
	if err != nil {
		return rolling.Snapshot{}, err
	}

	return rolling.NewSnapshot(req.Span.End, entries...), nil
}

// UserInfo is never cached; play counts change with every scrobble.
func (c *Charts) UserInfo(ctx context.Context, user string) (lastfm.UserInfo, error) {
	return c.upstream.UserInfo(ctx, user)
}

// RegisteredAt implements report.InfoSource.
func (c *Charts) RegisteredAt(ctx context.Context, user string) (time.Time, error) {
	info, err := c.UserInfo(ctx, user)
	if err != nil {
		return time.Time{}, err
	}

	return info.RegisteredAt, nil
}

// CacheStats returns the cache counters, or false when caching is off.
func (c *Charts) CacheStats() (cache.Stats, bool) {
	if c.cache == nil {
		return cache.Stats{}, false
	}

	return c.cache.Stats(), true
}

func (c *Charts) observe(ctx context.Context, kind lastfm.ChartKind, hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(ctx, string(kind), hit)
	}
}
