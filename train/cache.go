package train

import (
	"sync"
	"time"
)

// Cache keeps the last reconciled train result for the configured TTL.
// The upstream API has a daily request quota, so every avoided refresh
// counts. Writes happen only at the end of a completed reconciliation
// pass; the mutex covers concurrent HTTP handlers reading it.
type Cache struct {
	mu    sync.Mutex
	ttl   time.Duration
	value Result
	setAt time.Time
	ok    bool
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Cache{ttl: ttl}
}

// Get returns the cached result. With allowStale the TTL is ignored —
// used to serve the last good data after a rate-limit response.
func (c *Cache) Get(now time.Time, allowStale bool) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ok {
		return Result{}, false
	}
	if !allowStale && now.Sub(c.setAt) > c.ttl {
		return Result{}, false
	}
	return c.value, true
}

// Put overwrites the cached result.
func (c *Cache) Put(now time.Time, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = r
	c.setAt = now
	c.ok = true
}
