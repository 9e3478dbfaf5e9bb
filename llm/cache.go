package llm

import (
	"context"
	"sync"
)

// Cache is a persistent fingerprint → response mapping. It is append-only and
// read-heavy; there is no eviction and no invalidation. Entries live for the
// cache's lifetime (process or file, per the implementation).
//
// Put is idempotent: the same fingerprint always maps to the same value, so
// the worst outcome of a write race is a duplicate remote call. Implementations
// backed by shared media must still serialize writes to avoid corruption.
type Cache interface {
	// Get returns the cached response for a fingerprint, if present.
	Get(ctx context.Context, fingerprint string) (text string, ok bool, err error)

	// Put stores a response under a fingerprint, overwriting any entry.
	Put(ctx context.Context, fingerprint, text string) error
}

// MemoryCache is a mutex-guarded in-process cache. Suitable for tests and
// single-run pipelines.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]string)}
}

// Get returns the cached response for a fingerprint, if present.
func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	text, ok := c.data[fingerprint]
	return text, ok, nil
}

// Put stores a response under a fingerprint.
func (c *MemoryCache) Put(ctx context.Context, fingerprint, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[fingerprint] = text
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}
