package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
	hasTTL    bool
}

func (e memoryEntry) isExpired() bool {
	return e.hasTTL && time.Now().After(e.expiresAt)
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache returns an in-process Client for local dev and tests.
func NewMemoryCache() Client {
	return &memoryCache{entries: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(_ context.Context, namespace, key string, dest interface{}) bool {
	c.mu.RLock()
	entry, ok := c.entries[namespace+":"+key]
	c.mu.RUnlock()

	if !ok || entry.isExpired() {
		return false
	}
	return json.Unmarshal(entry.data, dest) == nil
}

func (c *memoryCache) Set(_ context.Context, namespace, key string, value interface{}, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.hasTTL = true
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[namespace+":"+key] = entry
	c.mu.Unlock()
	return true
}

func (c *memoryCache) Delete(_ context.Context, namespace, key string) bool {
	c.mu.Lock()
	delete(c.entries, namespace+":"+key)
	c.mu.Unlock()
	return true
}

func (c *memoryCache) DelPattern(_ context.Context, pattern string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
		}
	}
	return true
}

func (c *memoryCache) IsAvailable() bool { return true }
