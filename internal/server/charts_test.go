package server_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/chartfang/internal/server"
	"github.com/Sumatoshi-tech/chartfang/pkg/fetch"
	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
	"github.com/Sumatoshi-tech/chartfang/pkg/span"
)

type lookup struct {
	kind string
	hit  bool
}

type recordingObserver struct {
	mu      sync.Mutex
	lookups []lookup
}

func (r *recordingObserver) ObserveCache(_ context.Context, kind string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookups = append(r.lookups, lookup{kind: kind, hit: hit})
}

func TestCharts_CachesFinishedWeeks(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	mock.Set(now)

	up := newFakeUpstream()
	obs := &recordingObserver{}
	charts := server.NewCharts(up, server.WithChartCache(8), server.WithChartsClock(mock), server.WithCacheObserver(obs))

	from := time.Date(2024, time.June, 2, 12, 0, 0, 0, time.UTC)
	to := from.Add(span.Week)

	first, err := charts.WeeklyChart(context.Background(), "Alice", lastfm.KindTrack, from, to)
	require.NoError(t, err)

	first[0].Count = 999

	second, err := charts.WeeklyChart(context.Background(), "alice", lastfm.KindTrack, from, to)
	require.NoError(t, err)

	assert.Equal(t, rolling.Count(7), second[0].Count)
	assert.Equal(t, 1, up.callCount())
	assert.Equal(t, []lookup{{kind: "track", hit: false}, {kind: "track", hit: true}}, obs.lookups)
}

func TestCharts_NoCache(t *testing.T) {
	t.Parallel()

	up := newFakeUpstream()
	charts := server.NewCharts(up)

	from := time.Date(2020, time.January, 5, 12, 0, 0, 0, time.UTC)

	for range 3 {
		_, err := charts.WeeklyChart(context.Background(), "alice", lastfm.KindArtist, from, from.Add(span.Week))
		require.NoError(t, err)
	}

	assert.Equal(t, 3, up.callCount())

	_, ok := charts.CacheStats()
	assert.False(t, ok)
}

func TestCharts_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	mock.Set(now)

	up := newFakeUpstream()
	up.chartErr = errors.New("connection reset")
	charts := server.NewCharts(up, server.WithChartCache(8), server.WithChartsClock(mock))

	from := time.Date(2024, time.June, 2, 12, 0, 0, 0, time.UTC)

	for range 2 {
		_, err := charts.WeeklyChart(context.Background(), "alice", lastfm.KindAlbum, from, from.Add(span.Week))
		require.Error(t, err)
	}

	assert.Equal(t, 2, up.callCount())
}

func TestCharts_FetchSnapshotAndRegisteredAt(t *testing.T) {
	t.Parallel()

	up := newFakeUpstream()
	charts := server.NewCharts(up)

	sp := span.Span{
		Start: time.Date(2024, time.June, 2, 12, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.June, 9, 12, 0, 0, 0, time.UTC),
	}

	snap, err := charts.FetchSnapshot(context.Background(), fetch.Request{Subject: "alice", Kind: "artist", Span: sp})
	require.NoError(t, err)
	assert.Equal(t, sp.End, snap.PeriodEnd)
	assert.Len(t, snap.Entries, 2)

	_, err = charts.FetchSnapshot(context.Background(), fetch.Request{Subject: "alice", Kind: "genre", Span: sp})
	require.ErrorIs(t, err, lastfm.ErrUnknownChartKind)

	registered, err := charts.RegisteredAt(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, up.registered, registered)
}
