// Package report runs the full chart pipeline for one user: resolve the query
// range, fetch weekly snapshots and aggregate them into top-N series.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raulk/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/chartfang/pkg/fetch"
	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
	"github.com/Sumatoshi-tech/chartfang/pkg/span"
	"github.com/Sumatoshi-tech/chartfang/pkg/timeframe"
)

// DefaultTopN is the number of positions charted when none is requested.
const DefaultTopN = 20

// TopChoices are the position counts offered to users.
var TopChoices = []int{5, 10, 15, 20, 30, 50}

const tracerName = "chartfang/report"

// Sentinel errors for report requests.
var (
	ErrEmptySubject  = errors.New("username is required")
	ErrNoInfoSource  = errors.New("registration date lookup is not configured")
	ErrFutureRequest = errors.New("query range starts in the future")
)

// InfoSource looks up when a user registered.
type InfoSource interface {
	RegisteredAt(ctx context.Context, user string) (time.Time, error)
}

// Request selects the chart to build. Zero values pick the defaults.
type Request struct {
	Subject   string              `json:"username"`
	Kind      lastfm.ChartKind    `json:"chart_type"`
	Timeframe timeframe.Timeframe `json:"timeframe"`
	TopN      int                 `json:"top"`
}

// Normalize fills defaults and validates r.
func (r Request) Normalize() (Request, error) {
	r.Subject = strings.TrimSpace(r.Subject)
	if r.Subject == "" {
		return Request{}, ErrEmptySubject
	}

	if r.Kind == "" {
		r.Kind = lastfm.DefaultKind
	}

	kind, err := lastfm.ParseKind(string(r.Kind))
	if err != nil {
		return Request{}, err
	}

	r.Kind = kind

	if r.Timeframe == "" {
		r.Timeframe = timeframe.Default
	}

	err = r.Timeframe.Validate()
	if err != nil {
		return Request{}, err
	}

	if r.TopN == 0 {
		r.TopN = DefaultTopN
	}

	if r.TopN < 0 {
		return Request{}, fmt.Errorf("%w: %d", rolling.ErrInvalidTopN, r.TopN)
	}

	return r, nil
}

// FailedSpan is a period that could not be fetched and was charted as empty.
type FailedSpan struct {
	Span  span.Span `json:"span"  yaml:"span"`
	Error string    `json:"error" yaml:"error"`
}

// Report is the outcome of one pipeline run.
type Report struct {
	Subject   string              `json:"username"   yaml:"username"`
	Kind      lastfm.ChartKind    `json:"chart_type" yaml:"chart_type"`
	Timeframe timeframe.Timeframe `json:"timeframe"  yaml:"timeframe"`
	TopN      int                 `json:"top"        yaml:"top"`
	From      time.Time           `json:"from"       yaml:"from"`
	To        time.Time           `json:"to"         yaml:"to"`
	Periods   []time.Time         `json:"periods"    yaml:"periods"`
	Series    []rolling.Series    `json:"series"     yaml:"series"`
	Failures  []FailedSpan        `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Title describes the report for headings.
func (r *Report) Title() string {
	return fmt.Sprintf("%s: top %d %s, %s", r.Subject, r.TopN, r.Kind.Label(), r.Timeframe.Label())
}

// Builder runs report pipelines.
type Builder struct {
	collector *fetch.Collector
	info      InfoSource
	clock     clock.Clock
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the clock that supplies the to-date.
func WithClock(c clock.Clock) Option {
	return func(b *Builder) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithTracer sets the tracer for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(b *Builder) {
		if t != nil {
			b.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder. info may be nil when overall charts are not needed.
func NewBuilder(collector *fetch.Collector, info InfoSource, opts ...Option) *Builder {
	b := &Builder{
		collector: collector,
		info:      info,
		clock:     clock.New(),
		tracer:    otel.Tracer(tracerName),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build runs the pipeline for req.
func (b *Builder) Build(ctx context.Context, req Request) (*Report, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	ctx, sp := b.tracer.Start(ctx, "chartfang.report.build",
		trace.WithAttributes(
			attribute.String("report.kind", string(req.Kind)),
			attribute.String("report.timeframe", string(req.Timeframe)),
			attribute.Int("report.top", req.TopN),
		))
	defer sp.End()

	rep, err := b.build(ctx, req)
	if err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	sp.SetAttributes(
		attribute.Int("report.periods", len(rep.Periods)),
		attribute.Int("report.series", len(rep.Series)),
		attribute.Int("report.failures", len(rep.Failures)),
	)

	return rep, nil
}

func (b *Builder) build(ctx context.Context, req Request) (*Report, error) {
	to := b.clock.Now().UTC()

	from, err := b.fromDate(ctx, req, to)
	if err != nil {
		return nil, err
	}

	if from.After(to) {
		return nil, fmt.Errorf("%w: %s", ErrFutureRequest, from.Format(time.RFC3339))
	}

	spans, err := span.Weekly(from, to)
	if err != nil {
		return nil, fmt.Errorf("split query range: %w", err)
	}

	b.logger.DebugContext(ctx, "building report",
		"subject", req.Subject,
		"kind", req.Kind,
		"timeframe", req.Timeframe,
		"from", from,
		"to", to,
		"spans", len(spans),
	)

	result, err := b.collector.Collect(ctx, req.Subject, string(req.Kind), spans)
	if err != nil {
		return nil, err
	}

	series, err := rolling.Aggregate(result.Snapshots, req.TopN, req.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	rep := &Report{
		Subject:   req.Subject,
		Kind:      req.Kind,
		Timeframe: req.Timeframe,
		TopN:      req.TopN,
		From:      from,
		To:        to,
		Periods:   span.Ends(spans),
		Series:    series,
	}

	for _, f := range result.Failures {
		rep.Failures = append(rep.Failures, FailedSpan{Span: f.Span, Error: f.Err.Error()})
	}

	return rep, nil
}

func (b *Builder) fromDate(ctx context.Context, req Request, to time.Time) (time.Time, error) {
	if req.Timeframe != timeframe.Overall {
		return req.Timeframe.FromDate(to, time.Time{})
	}

	if b.info == nil {
		return time.Time{}, ErrNoInfoSource
	}

	registered, err := b.info.RegisteredAt(ctx, req.Subject)
	if err != nil {
		return time.Time{}, fmt.Errorf("look up registration date: %w", err)
	}

	return req.Timeframe.FromDate(to, registered)
}
