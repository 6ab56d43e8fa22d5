package policymodule

import (
	"sync"
	"time"

	"github.com/mediamesh/playadvisor/internal/database"
)

// ClientCache is a concurrent device-ID keyed cache of client profiles with
// TTL expiry and explicit invalidation. The learning loop invalidates after
// every write so decisions never act on stale confidence.
type ClientCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	profile   *database.ClientProfile
	expiresAt time.Time
}

// NewClientCache creates a cache with the given TTL. A non-positive TTL
// disables caching entirely.
func NewClientCache(ttl time.Duration) *ClientCache {
	return &ClientCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached profile for a device, or nil on miss or expiry
func (c *ClientCache) Get(deviceID string) *database.ClientProfile {
	if c.ttl <= 0 {
		return nil
	}
	c.mu.RLock()
	entry, ok := c.entries[deviceID]
	c.mu.RUnlock()

	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		c.Invalidate(deviceID)
		return nil
	}
	return entry.profile
}

// Set stores a profile
func (c *ClientCache) Set(deviceID string, profile *database.ClientProfile) {
	if c.ttl <= 0 || profile == nil {
		return
	}
	c.mu.Lock()
	c.entries[deviceID] = cacheEntry{
		profile:   profile,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes a device's cached profile
func (c *ClientCache) Invalidate(deviceID string) {
	c.mu.Lock()
	delete(c.entries, deviceID)
	c.mu.Unlock()
}

// Purge removes every cached profile
func (c *ClientCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached entries, expired ones included
func (c *ClientCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
