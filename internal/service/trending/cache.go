// internal/service/trending/cache.go

package trending

import (
	"sync"
	"time"
)

// CacheState describes how recently a region was fetched
type CacheState int

const (
	StateNeverFetched CacheState = iota
	StateFresh
	StateStale
)

func (s CacheState) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "never-fetched"
	}
}

// FetchCache tracks the last successful fetch time per region, and the last
// failed attempt since then. It is safe for concurrent use.
type FetchCache struct {
	ttl        time.Duration
	now        func() time.Time
	mu         sync.RWMutex
	lastFetch  map[string]time.Time
	lastFailed map[string]time.Time
}

// NewFetchCache creates a cache whose entries go stale after ttl. A nil now
// defaults to time.Now.
func NewFetchCache(ttl time.Duration, now func() time.Time) *FetchCache {
	if now == nil {
		now = time.Now
	}

	return &FetchCache{
		ttl:        ttl,
		now:        now,
		lastFetch:  make(map[string]time.Time),
		lastFailed: make(map[string]time.Time),
	}
}

// State returns the cache state of a region
func (c *FetchCache) State(region string) CacheState {
	c.mu.RLock()
	last, ok := c.lastFetch[region]
	c.mu.RUnlock()

	if !ok {
		return StateNeverFetched
	}
	if c.now().Sub(last) < c.ttl {
		return StateFresh
	}
	return StateStale
}

// MarkFetched records a successful fetch of region at the current time
func (c *FetchCache) MarkFetched(region string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastFetch[region] = c.now()
	delete(c.lastFailed, region)
}

// MarkFailed records a failed fetch attempt of region at the current time
func (c *FetchCache) MarkFailed(region string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastFailed[region] = c.now()
}

// FailedWithin reports whether the last attempt at region failed less than d
// ago
func (c *FetchCache) FailedWithin(region string, d time.Duration) bool {
	if d <= 0 {
		return false
	}

	c.mu.RLock()
	last, ok := c.lastFailed[region]
	c.mu.RUnlock()

	return ok && c.now().Sub(last) < d
}

// LastFetched returns when region was last fetched successfully
func (c *FetchCache) LastFetched(region string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	last, ok := c.lastFetch[region]
	return last, ok
}
