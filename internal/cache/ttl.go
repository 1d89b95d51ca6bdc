package cache

import (
	"sync"
	"time"
)

// TTLCache is a bounded cache whose entries expire after a fixed TTL.
//
// Eviction scans for the least recently used entry instead of keeping
// list bookkeeping: the projection caches hold at most a few dozen
// entries, so the scan is cheaper than it looks.
type TTLCache[T any] struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	entries    map[string]*entry[T]
}

type entry[T any] struct {
	value    T
	expires  time.Time
	lastUsed time.Time
}

func NewTTLCache[T any](maxEntries int, ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]*entry[T]),
	}
}

// Get returns the cached value for key, dropping it on expiry.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	now := time.Now()
	if now.After(e.expires) {
		delete(c.entries, key)
		return zero, false
	}

	e.lastUsed = now
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry
// when the cache is full.
func (c *TTLCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.entries[key] = &entry[T]{
		value:    value,
		expires:  now.Add(c.ttl),
		lastUsed: now,
	}

	if len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

// Delete removes key from the cache if present.
func (c *TTLCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Size returns the number of entries, expired ones included.
func (c *TTLCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CleanExpired drops every expired entry and reports how many were
// removed.
func (c *TTLCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// evictOldest removes the entry with the oldest lastUsed stamp.
// Caller holds the lock.
func (c *TTLCache[T]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, e := range c.entries {
		if first || e.lastUsed.Before(oldest) {
			oldestKey = key
			oldest = e.lastUsed
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
