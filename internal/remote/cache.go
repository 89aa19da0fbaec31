package remote

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kk-code-lab/rtree/internal/tree"
)

// Cache wraps a loader with a TTL cache. Concurrent misses for the same path
// share one underlying load. A zero TTL disables caching but keeps the
// coalescing.
type Cache struct {
	loader tree.Loader
	ttl    time.Duration
	now    func() time.Time

	sf singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	listing   tree.Listing
	expiresAt time.Time
}

// NewCache creates a cache in front of loader.
func NewCache(loader tree.Loader, ttl time.Duration) *Cache {
	return &Cache{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Load returns a cached listing when it is still fresh.
func (c *Cache) Load(ctx context.Context, path string) (tree.Listing, error) {
	if c.ttl > 0 {
		c.mu.RLock()
		entry, ok := c.entries[path]
		c.mu.RUnlock()
		if ok && c.now().Before(entry.expiresAt) {
			return entry.listing, nil
		}
	}

	result, err, _ := c.sf.Do(path, func() (interface{}, error) {
		listing, err := c.loader.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			c.entries[path] = cacheEntry{listing: listing, expiresAt: c.now().Add(c.ttl)}
			c.mu.Unlock()
		}
		return listing, nil
	})
	if err != nil {
		return tree.Listing{}, err
	}
	return result.(tree.Listing), nil
}

// Invalidate drops the cached listing for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
	c.sf.Forget(path)
}

// Purge drops every cached listing.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached listings, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
