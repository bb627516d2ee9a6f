// Package perf provides the scheduler's runtime support: a memoizing
// computation cache, typed object pools, a priority worker queue with
// bounded retries, and a memory-pressure handler.
package perf

import (
	"sort"
	"sync"
	"time"
)

// cacheEntry is one memoized computation. Entries are owned exclusively
// by the cache and never handed out by reference.
type cacheEntry[V any] struct {
	key          string
	result       V
	insertedAt   time.Time
	hitCount     int
	computeTime  time.Duration
	expiresAt    time.Time
	sizeEstimate int
}

// Cache memoizes expensive computations with per-entry TTLs. Cache
// operations never fail; a problem degrades to a miss and recompute.
type Cache[V any] struct {
	mu sync.Mutex
	// entries maps cache key to its entry.
	entries map[string]*cacheEntry[V]
	// maxEntries caps the cache; inserting beyond it evicts the oldest
	// 10% of entries by insertion time.
	maxEntries int
	// hits and misses are lifetime counters.
	hits   int
	misses int
	// now is injectable for TTL tests.
	now func() time.Time
}

// NewCache creates a cache holding at most maxEntries entries.
func NewCache[V any](maxEntries int) *Cache[V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache[V]{
		entries:    make(map[string]*cacheEntry[V]),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Compute returns the cached result for key if present and unexpired;
// otherwise it runs compute, times it, stores the result with the given
// TTL, and returns it.
func (c *Cache[V]) Compute(key string, ttl time.Duration, compute func() V) V {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.now().Before(entry.expiresAt) {
		entry.hitCount++
		c.hits++
		result := entry.result
		c.mu.Unlock()
		return result
	}
	c.misses++
	c.mu.Unlock()

	// Compute outside the lock so slow computations don't serialize
	// unrelated keys. Concurrent misses on the same key may compute
	// twice; the last write wins.
	start := c.now()
	result := compute()
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &cacheEntry[V]{
		key:          key,
		result:       result,
		insertedAt:   c.now(),
		computeTime:  elapsed,
		expiresAt:    c.now().Add(ttl),
		sizeEstimate: 1,
	}
	return result
}

// evictOldestLocked removes the lowest-insertion-time 10% of entries
// (at least one). This approximates LRU by insertion rather than by
// access. Caller holds c.mu.
func (c *Cache[V]) evictOldestLocked() {
	n := len(c.entries) / 10
	if n < 1 {
		n = 1
	}

	all := make([]*cacheEntry[V], 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].insertedAt.Equal(all[j].insertedAt) {
			return all[i].insertedAt.Before(all[j].insertedAt)
		}
		return all[i].key < all[j].key
	})
	for _, e := range all[:n] {
		delete(c.entries, e.key)
	}
}

// ClearExpired removes all expired entries and returns how many were
// dropped.
func (c *Cache[V]) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var removed int
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns lifetime hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// HitCount returns how many times the given key has been served from
// cache, or zero if absent.
func (c *Cache[V]) HitCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		return entry.hitCount
	}
	return 0
}
