package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"qabot/internal/port"
)

// QueryCache is an LRU of query embeddings with a TTL. Entries are keyed by
// model and query text, so a corpus reload never makes one stale.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	vector    []float32
	timestamp time.Time
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(model, query string) string {
	data := append([]byte(model), 0)
	data = append(data, query...)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get holds the write lock for the whole lookup: a hit reorders the LRU and
// an expired entry is removed.
func (c *QueryCache) Get(model, query string) ([]float32, bool) {
	key := cacheKey(model, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return entry.vector, true
}

func (c *QueryCache) Put(model, query string, vector []float32) {
	key := cacheKey(model, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{vector: vector, timestamp: time.Now()}
	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedEmbedder serves repeated single-query embeddings from a QueryCache.
// Batches bypass the cache.
type CachedEmbedder struct {
	embedder port.Embedder
	cache    *QueryCache
}

func NewCachedEmbedder(embedder port.Embedder, cache *QueryCache) *CachedEmbedder {
	return &CachedEmbedder{
		embedder: embedder,
		cache:    cache,
	}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) != 1 {
		return e.embedder.Embed(ctx, texts)
	}

	model := e.embedder.ModelName()
	if vec, hit := e.cache.Get(model, texts[0]); hit {
		return [][]float32{vec}, nil
	}

	vecs, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 1 {
		e.cache.Put(model, texts[0], vecs[0])
	}
	return vecs, nil
}

func (e *CachedEmbedder) Dimension() int {
	return e.embedder.Dimension()
}

func (e *CachedEmbedder) ModelName() string {
	return e.embedder.ModelName()
}
