// Package cache provides an in-memory LRU cache used for finished weekly charts.
package cache

import (
	"sync"
	"sync/atomic"
)

// DefaultMaxEntries is the default capacity of an LRU.
const DefaultMaxEntries = 4096

// LRU is a fixed-capacity, least recently used cache safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]*lruEntry[K, V]
	head       *lruEntry[K, V] // Most recently used.
	tail       *lruEntry[K, V] // Least recently used.
	maxEntries int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	prev  *lruEntry[K, V]
	next  *lruEntry[K, V]
}

// NewLRU creates a cache holding at most maxEntries values.
func NewLRU[K comparable, V any](maxEntries int) *LRU[K, V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	return &LRU[K, V]{
		entries:    make(map[K]*lruEntry[K, V]),
		maxEntries: maxEntries,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)
	c.moveToFront(entry)

	return entry.value, true
}

// Put stores value under key, evicting the least recently used entry when full.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.value = value
		c.moveToFront(entry)

		return
	}

	for len(c.entries) >= c.maxEntries && c.tail != nil {
		c.evict(c.tail)
	}

	entry := &lruEntry[K, V]{key: key, value: value}
	c.entries[key] = entry
	c.addToFront(entry)
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Entries:    len(c.entries),
		MaxEntries: c.maxEntries,
	}
}

// Stats holds cache performance counters.
type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Entries    int
	MaxEntries int
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

// Clear removes all entries.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*lruEntry[K, V])
	c.head = nil
	c.tail = nil
}

func (c *LRU[K, V]) moveToFront(entry *lruEntry[K, V]) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU[K, V]) addToFront(entry *lruEntry[K, V]) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU[K, V]) removeFromList(entry *lruEntry[K, V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}

func (c *LRU[K, V]) evict(entry *lruEntry[K, V]) {
	c.removeFromList(entry)
	delete(c.entries, entry.key)
	c.evictions.Add(1)
}
