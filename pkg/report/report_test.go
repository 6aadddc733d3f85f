package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/chartfang/pkg/fetch"
	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/report"
	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
	"github.com/Sumatoshi-tech/chartfang/pkg/timeframe"
)

var errRateLimited = errors.New("rate limited")

// Wednesday afternoon; the last-7-days range starts Sunday 2024-06-02 12:00.
var now = time.Date(2024, time.June, 19, 15, 0, 0, 0, time.UTC)

func at(month time.Month, day, hour int) time.Time {
	return time.Date(2024, month, day, hour, 0, 0, 0, time.UTC)
}

func mockClock() *clock.Mock {
	c := clock.NewMock()
	c.Set(now)

	return c
}

type infoFunc func(ctx context.Context, user string) (time.Time, error)

func (f infoFunc) RegisteredAt(ctx context.Context, user string) (time.Time, error) {
	return f(ctx, user)
}

// chartFetcher serves fixed entries keyed by span end.
func chartFetcher(charts map[time.Time][]rolling.Entry, failing ...time.Time) fetch.Fetcher {
	return fetch.FetcherFunc(func(_ context.Context, req fetch.Request) (rolling.Snapshot, error) {
		for _, f := range failing {
			if req.Span.End.Equal(f) {
				return rolling.Snapshot{}, errRateLimited
			}
		}

		return rolling.NewSnapshot(req.Span.End, charts[req.Span.End]...), nil
	})
}

func weeklyCharts() map[time.Time][]rolling.Entry {
	return map[time.Time][]rolling.Entry{
		at(time.June, 9, 12):  {{Item: "X", Count: 5}},
		at(time.June, 16, 12): {{Item: "X", Count: 3}, {Item: "Y", Count: 4}},
		now:                   {{Item: "Y", Count: 10}},
	}
}

func TestBuild_Last7Days(t *testing.T) {
	t.Parallel()

	builder := report.NewBuilder(fetch.NewCollector(chartFetcher(weeklyCharts())), nil,
		report.WithClock(mockClock()))

	rep, err := builder.Build(context.Background(), report.Request{
		Subject:   " alice ",
		Kind:      lastfm.KindArtist,
		Timeframe: timeframe.Last7Days,
		TopN:      10,
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", rep.Subject)
	assert.Equal(t, at(time.June, 2, 12), rep.From)
	assert.Equal(t, now, rep.To)
	assert.Equal(t, []time.Time{at(time.June, 9, 12), at(time.June, 16, 12), now}, rep.Periods)
	assert.Empty(t, rep.Failures)

	require.Len(t, rep.Series, 2)
	assert.Equal(t, rolling.ItemID("X"), rep.Series[0].Name)
	assert.Equal(t, []rolling.Count{5, 3, 0}, rep.Series[0].Values())
	assert.Equal(t, rolling.ItemID("Y"), rep.Series[1].Name)
	assert.Equal(t, []rolling.Count{0, 4, 14}, rep.Series[1].Values())
}

func TestBuild_FailedSpanIsChartedEmpty(t *testing.T) {
	t.Parallel()

	failed := at(time.June, 16, 12)
	builder := report.NewBuilder(fetch.NewCollector(chartFetcher(weeklyCharts(), failed)), nil,
		report.WithClock(mockClock()))

	rep, err := builder.Build(context.Background(), report.Request{Subject: "alice", Timeframe: timeframe.Last7Days})
	require.NoError(t, err)

	require.Len(t, rep.Failures, 1)
	assert.Equal(t, failed, rep.Failures[0].Span.End)
	assert.Contains(t, rep.Failures[0].Error, errRateLimited.Error())

	require.Len(t, rep.Series, 2)
	assert.Equal(t, []rolling.Count{5, 0, 0}, rep.Series[0].Values())
	assert.Equal(t, []rolling.Count{0, 0, 10}, rep.Series[1].Values())
}

func TestBuild_Defaults(t *testing.T) {
	t.Parallel()

	builder := report.NewBuilder(fetch.NewCollector(chartFetcher(nil)), nil, report.WithClock(mockClock()))

	rep, err := builder.Build(context.Background(), report.Request{Subject: "bob"})
	require.NoError(t, err)

	assert.Equal(t, lastfm.DefaultKind, rep.Kind)
	assert.Equal(t, timeframe.Default, rep.Timeframe)
	assert.Equal(t, report.DefaultTopN, rep.TopN)
	assert.Equal(t, at(time.June, 18, 12).AddDate(-1, 0, 0), rep.From)
	assert.Empty(t, rep.Series)
	assert.NotEmpty(t, rep.Periods)
	assert.Equal(t, "bob: top 20 Artists, Last 6 months", rep.Title())
}

func TestBuild_OverallUsesRegistration(t *testing.T) {
	t.Parallel()

	info := infoFunc(func(_ context.Context, user string) (time.Time, error) {
		assert.Equal(t, "carol", user)

		return at(time.May, 29, 8), nil
	})

	builder := report.NewBuilder(fetch.NewCollector(chartFetcher(nil)), info, report.WithClock(mockClock()))

	rep, err := builder.Build(context.Background(), report.Request{Subject: "carol", Timeframe: timeframe.Overall})
	require.NoError(t, err)
	assert.Equal(t, at(time.May, 26, 12), rep.From)
	assert.Len(t, rep.Periods, 4)
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	failingInfo := infoFunc(func(context.Context, string) (time.Time, error) {
		return time.Time{}, errRateLimited
	})

	futureInfo := infoFunc(func(context.Context, string) (time.Time, error) {
		return now.AddDate(0, 1, 0), nil
	})

	tests := []struct {
		name    string
		info    report.InfoSource
		req     report.Request
		wantErr error
	}{
		{name: "empty subject", req: report.Request{Subject: "  "}, wantErr: report.ErrEmptySubject},
		{name: "unknown kind", req: report.Request{Subject: "u", Kind: "tag"}, wantErr: lastfm.ErrUnknownChartKind},
		{name: "unknown timeframe", req: report.Request{Subject: "u", Timeframe: "forever"}, wantErr: timeframe.ErrInvalidTimeframe},
		{name: "negative top", req: report.Request{Subject: "u", TopN: -1}, wantErr: rolling.ErrInvalidTopN},
		{name: "overall without info", req: report.Request{Subject: "u", Timeframe: timeframe.Overall}, wantErr: report.ErrNoInfoSource},
		{name: "info failure", info: failingInfo, req: report.Request{Subject: "u", Timeframe: timeframe.Overall}, wantErr: errRateLimited},
		{name: "future registration", info: futureInfo, req: report.Request{Subject: "u", Timeframe: timeframe.Overall}, wantErr: report.ErrFutureRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			builder := report.NewBuilder(fetch.NewCollector(chartFetcher(nil)), tt.info, report.WithClock(mockClock()))

			_, err := builder.Build(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuild_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	builder := report.NewBuilder(fetch.NewCollector(chartFetcher(nil)), nil, report.WithClock(mockClock()))

	_, err := builder.Build(ctx, report.Request{Subject: "u"})
	require.ErrorIs(t, err, context.Canceled)
}
