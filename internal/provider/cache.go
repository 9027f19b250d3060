package provider

import (
	"sync"
	"time"
)

// TokenCache stores short-lived per-provider client state (auth tokens,
// rate-limit bookkeeping). It is injected into provider clients so tests can
// substitute their own implementation.
type TokenCache interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration)
	Delete(key string)
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryTokenCache is an in-process TokenCache with per-entry TTL
type MemoryTokenCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time // overridable in tests
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value if present and not expired. Expired entries
// are removed on access.
func (c *MemoryTokenCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

// Set stores a value for the given TTL
func (c *MemoryTokenCache) Set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Delete removes a key
func (c *MemoryTokenCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
