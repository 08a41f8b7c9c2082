// Package cache keeps short-lived copies of backend read responses so that
// repeated view entries do not repeat round-trips.
package cache

import (
	"strings"
	"sync"
	"time"
)

// entry wraps a cached body with expiry and insertion order tracking.
type entry struct {
	body      []byte
	expiry    time.Time
	insertIdx int64
}

// ResponseCache caches successful GET response bodies.
// Keys are "token:method:path", so one session never reads another's entries.
// Each token carries a generation that InvalidateToken advances; a read that
// started before a write must not store its body after that write.
type ResponseCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	gens       map[string]uint64
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

// New creates a new ResponseCache with the given TTL and max entry count.
func New(ttl time.Duration, maxEntries int) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &ResponseCache{
		items:      make(map[string]entry),
		gens:       make(map[string]uint64),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// MakeKey builds a cache key from the session token, HTTP method, and path.
func MakeKey(token, method, path string) string {
	return token + ":" + method + ":" + path
}

// Get returns a cached body if found and not expired.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().After(e.expiry) {
		// Expired: remove lazily
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && c.now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.body, true
}

// Generation returns token's current generation. Capture it before issuing
// the request whose body is later passed to SetIfCurrent.
func (c *ResponseCache) Generation(token string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[token]
}

// SetIfCurrent stores body unless token was invalidated after gen was
// captured. It reports whether the body was stored.
func (c *ResponseCache) SetIfCurrent(token string, gen uint64, key string, body []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[token] != gen {
		return false
	}
	c.set(key, body)
	return true
}

// Set stores a body in the cache. Evicts the oldest entry if at capacity.
func (c *ResponseCache) Set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, body)
}

func (c *ResponseCache) set(key string, body []byte) {
	e := entry{
		body:      body,
		expiry:    c.now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}

	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = e
}

// InvalidateToken removes every entry cached for token. Called after any
// write made with that token.
func (c *ResponseCache) InvalidateToken(token string) {
	if token == "" {
		return
	}
	prefix := token + ":"

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[token]++
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Len returns the number of entries, expired ones included.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *ResponseCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
