package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCache is an in-process Cache for unit tests and local tooling.
// TTLs are honored lazily on read.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	counters  map[string]int64
	overrides map[string]uuid.UUID
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:   map[string]memoryEntry{},
		counters:  map[string]int64{},
		overrides: map[string]uuid.UUID{},
	}
}

func (c *MemoryCache) Ping(_ context.Context) error { return nil }

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var deleted int
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (c *MemoryCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

func (c *MemoryCache) SetOverride(_ context.Context, sessionID string, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[sessionID] = tenantID
	return nil
}

func (c *MemoryCache) GetOverride(_ context.Context, sessionID string) (uuid.UUID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.overrides[sessionID]
	return id, ok, nil
}

func (c *MemoryCache) ClearOverride(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.overrides, sessionID)
	return nil
}
