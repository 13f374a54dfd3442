// Package ttlcache implements the small (value, timestamp) caches used to
// avoid re-shelling to git / re-querying GitHub on every request.
package ttlcache

import (
	"sync"
	"time"
)

// Cache is a concurrent map from key to (value, insertion time). Get returns
// the value only if it is still fresh relative to the TTL the caller passes.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
}

type entry[V any] struct {
	value V
	at    time.Time
}

// New returns an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]entry[V])}
}

// Get returns the cached value for key if it was set less than ttl ago.
func (c *Cache[V]) Get(key string, ttl time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if time.Since(e.at) >= ttl {
		return zero, false
	}
	return e.value, true
}

// Set overwrites the cached value for key with the current time.
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: v, at: time.Now()}
}

// Delete removes key, if present. It is a no-op otherwise.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
