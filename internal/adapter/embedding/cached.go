package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"qabot/internal/port"
)

// CachedEmbedder serves repeated texts from a persistent cache and only
// sends misses to the wrapped embedder. Output order matches input order.
type CachedEmbedder struct {
	inner port.Embedder
	cache port.EmbeddingCache
	hits  atomic.Int64
}

func NewCachedEmbedder(inner port.Embedder, cache port.EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.inner.ModelName()
	out := make([][]float32, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		vec, ok, err := e.cache.Get(model, text)
		if err != nil {
			slog.Warn("embedding cache read failed", "error", err)
			ok = false
		}
		if ok && len(vec) == e.inner.Dimension() {
			out[i] = vec
			e.hits.Add(1)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := e.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, vec := range vecs {
		out[missIdx[j]] = vec
		if err := e.cache.Put(model, missTexts[j], vec); err != nil {
			slog.Warn("embedding cache write failed", "error", err)
		}
	}
	return out, nil
}

// Hits returns how many vectors were served from the cache.
func (e *CachedEmbedder) Hits() int {
	return int(e.hits.Load())
}

func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

func (e *CachedEmbedder) ModelName() string {
	return e.inner.ModelName()
}
