// Package cache provides a small thread-safe LRU cache used in front of
// slow lookups such as geocoding and the chemical catalog.
package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// LRU is a fixed-capacity least-recently-used cache with typed keys and
// values over groupcache's lru.Cache.
type LRU[K comparable, V any] struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewLRU creates a cache holding at most maxEntries values. A non-positive
// size is treated as 1.
func NewLRU[K comparable, V any](maxEntries int) *LRU[K, V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &LRU[K, V]{cache: lru.New(maxEntries)}
}

// Get returns the cached value and promotes it to most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	value, _ := v.(V) // nil interface for a stored nil
	return value, true
}

// Put stores a value, evicting the least recently used entry when full.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, value)
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
