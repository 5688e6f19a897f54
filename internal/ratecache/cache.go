// Package ratecache provides the TTL-bounded, stale-while-revalidate store
// for exchange rates and jurisdiction tax rates. It is the only shared
// mutable state between concurrent calculations.
package ratecache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"landed-cost/pkg/api"
)

// Entry is one cached rate value.
type Entry struct {
	Key       string
	Value     any
	FetchedAt time.Time
	TTL       time.Duration
	Source    api.RateSource
}

// Expired reports whether the entry is past its TTL at time now.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.FetchedAt) > e.TTL
}

// Lookup is the result of a cache read.
type Lookup struct {
	Value  any
	Source api.RateSource
	// Stale is set when an expired value was served while a refresh was in
	// flight. Stale values are never reported as live/cache.
	Stale bool
}

// FetchFunc retrieves a fresh value from the underlying rate source.
type FetchFunc func(ctx context.Context) (any, error)

// Cache is a concurrent TTL cache. Reads never block on refreshes: readers
// see the pre-refresh value until a refresh completes. Writes are
// last-writer-wins per key; staleness, not correctness, is the only risk of
// a lost write.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry

	group singleflight.Group
	now   func() time.Time

	counters Counters
}

// Counters are the cache's operational counters.
type Counters struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	StaleServes int64 `json:"stale_serves"`
	Refreshes   int64 `json:"refreshes"`
	Errors      int64 `json:"errors"`
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Get returns a fresh entry. Expired entries are treated as misses: an entry
// past its TTL is never returned as live/cache.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.Expired(c.now()) {
		c.mu.Lock()
		c.counters.Misses++
		c.mu.Unlock()
		return Entry{}, false
	}

	c.mu.Lock()
	c.counters.Hits++
	c.mu.Unlock()
	return entry, true
}

// GetStale returns an entry regardless of expiry, for stale-while-revalidate
// serving. The second return reports presence, the third freshness.
func (c *Cache) GetStale(key string) (Entry, bool, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false, false
	}
	return entry, true, !entry.Expired(c.now())
}

// Set stores a value with the TTL attached at write time.
func (c *Cache) Set(key string, value any, ttl time.Duration, source api.RateSource) {
	c.mu.Lock()
	c.entries[key] = Entry{
		Key:       key,
		Value:     value,
		FetchedAt: c.now(),
		TTL:       ttl,
		Source:    source,
	}
	c.mu.Unlock()
}

// Fetch performs a single-writer-per-key synchronous refresh: concurrent
// callers for the same key share one fetch. The result is stored with
// Source=live on success.
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (any, error) {
	value, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			c.mu.Lock()
			c.counters.Errors++
			c.mu.Unlock()
			return nil, err
		}
		c.Set(key, v, ttl, api.SourceLive)
		c.mu.Lock()
		c.counters.Refreshes++
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// GetOrFetch is the main read path. Fresh entry: served as cache hit. Miss:
// synchronous fetch within the caller's deadline. Expired entry: served
// immediately as stale (flagged, reduced trust) while a background refresh
// revalidates it, so cache expiry never adds latency to a calculation.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (Lookup, error) {
	entry, present, fresh := c.GetStale(key)

	if present && fresh {
		c.mu.Lock()
		c.counters.Hits++
		c.mu.Unlock()
		return Lookup{Value: entry.Value, Source: api.SourceCache}, nil
	}

	if present {
		// Stale-while-revalidate: serve the expired value, refresh off the
		// calculation's critical path.
		c.mu.Lock()
		c.counters.StaleServes++
		c.mu.Unlock()
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), ttl/2+time.Second)
			defer cancel()
			_, _ = c.Fetch(bg, key, ttl, fetch)
		}()
		return Lookup{Value: entry.Value, Source: api.SourceFallback, Stale: true}, nil
	}

	c.mu.Lock()
	c.counters.Misses++
	c.mu.Unlock()

	value, err := c.Fetch(ctx, key, ttl, fetch)
	if err != nil {
		return Lookup{}, err
	}
	return Lookup{Value: value, Source: api.SourceLive}, nil
}

// Clear evicts every entry. Counters survive so dashboards keep continuity.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Counters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters
}
