// Package cache provides a small in-memory TTL cache used to avoid
// repeat embedding and context-assembly work for identical queries.
package cache

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long entries live unless a per-entry TTL is given.
const DefaultTTL = time.Hour

// DefaultMaxSize bounds the number of entries.
const DefaultMaxSize = 500

var spaceRun = regexp.MustCompile(`\s+`)

// Key builds a cache key from a model identifier and a query.
// The query is normalised so trivially different phrasings share an
// entry.
func Key(modelID, query string) string {
	normalized := spaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")
	return modelID + ":" + normalized
}

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

// Cache is a bounded TTL cache. When full, the oldest inserted entry
// is evicted first. Safe for concurrent use.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	order   []string
	maxSize int
	ttl     time.Duration

	hits   uint64
	misses uint64

	now func() time.Time
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithMaxSize sets the entry cap.
func WithMaxSize[V any](n int) Option[V] {
	return func(c *Cache[V]) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithTTL sets the default entry lifetime.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// withClock overrides the time source for tests.
func withClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// New creates a cache with the given options.
func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		maxSize: DefaultMaxSize,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores a value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.ttl)
}

// SetTTL stores a value with an explicit lifetime.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxSize && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}

	c.entries[key] = entry[V]{
		value:    value,
		storedAt: c.now(),
		ttl:      ttl,
	}
}

// Get returns the cached value, or false when absent or expired.
// Expired entries are removed on access.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	if c.now().Sub(e.storedAt) > e.ttl {
		c.removeLocked(key)
		c.misses++
		return zero, false
	}

	c.hits++
	return e.value, true
}

// Delete removes a single entry.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// DeletePrefix removes all entries whose key starts with prefix.
// Used to drop all cached results for one model.
func (c *Cache[V]) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(key)
		}
	}
}

// Clear empties the cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.order = nil
}

// Cleanup drops all expired entries. Intended to run periodically.
func (c *Cache[V]) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.storedAt) > e.ttl {
			c.removeLocked(key)
		}
	}
}

// Stats describes cache occupancy and effectiveness.
type Stats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
}

// HitRate returns hits over total lookups, zero when never queried.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

func (c *Cache[V]) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
