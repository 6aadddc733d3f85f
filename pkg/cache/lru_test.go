package cache_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/chartfang/pkg/cache"
)

func TestLRU_GetPut(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](2)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Put("b", 20)

	v, ok = c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 20, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// Touch a so b becomes the eviction candidate.
	_, _ = c.Get("a")

	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)

	_, ok = c.Get("a")
	assert.True(t, ok)

	_, ok = c.Get("c")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, stats.MaxEntries)
}

func TestLRU_StatsAndClear(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[int, string](0)
	assert.Equal(t, cache.DefaultMaxEntries, c.Stats().MaxEntries)
	assert.InDelta(t, 0.0, c.Stats().HitRate(), 1e-9)

	c.Put(1, "x")
	_, _ = c.Get(1)
	_, _ = c.Get(2)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-9)

	c.Clear()
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](16)

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range 100 {
				key := fmt.Sprintf("k%d", (i*j)%32)
				c.Put(key, j)
				_, _ = c.Get(key)
			}
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
