package linkcheck

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ExistenceCache remembers which vault paths exist. Entries expire so a
// long-lived checker notices files added or removed between runs.
type ExistenceCache struct {
	lru *expirable.LRU[string, bool]
}

// NewExistenceCache creates a cache holding at most size entries for ttl.
func NewExistenceCache(size int, ttl time.Duration) *ExistenceCache {
	return &ExistenceCache{lru: expirable.NewLRU[string, bool](size, nil, ttl)}
}

// Get returns the cached existence of path.
func (c *ExistenceCache) Get(path string) (exists, found bool) {
	return c.lru.Get(path)
}

// Set stores the existence of path.
func (c *ExistenceCache) Set(path string, exists bool) {
	c.lru.Add(path, exists)
}

// Invalidate removes a specific entry from the cache.
func (c *ExistenceCache) Invalidate(path string) {
	c.lru.Remove(path)
}

// Clear removes all entries from the cache.
func (c *ExistenceCache) Clear() {
	c.lru.Purge()
}

// Len returns the number of entries currently in the cache.
func (c *ExistenceCache) Len() int {
	return c.lru.Len()
}
