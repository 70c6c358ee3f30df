package checker

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process ResultCache used when no store is configured and as
// the server's hot cache.
type MemoryCache struct {
	cache *gocache.Cache
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// NewMemoryCache creates a memory cache.
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (c *MemoryCache) GetCachedPayload(_ context.Context, provider, key string) ([]byte, *time.Time, error) {
	if c == nil {
		return nil, nil, nil
	}
	val, found := c.cache.Get(provider + "\x00" + key)
	if !found {
		return nil, nil, nil
	}
	entry := val.(memoryEntry)
	expires := entry.expires
	return entry.payload, &expires, nil
}

func (c *MemoryCache) SetCachedPayload(_ context.Context, provider, key string, payload []byte, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}
	c.cache.Set(provider+"\x00"+key, memoryEntry{payload: payload, expires: time.Now().UTC().Add(ttl)}, ttl)
	return nil
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() {
	if c != nil {
		c.cache.Flush()
	}
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.ItemCount()
}
