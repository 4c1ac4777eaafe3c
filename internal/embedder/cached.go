package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pycontext/pycontext/internal/cache"
)

// CachedEmbedder wraps an Embedder with a two-tier cache keyed by the
// text's digest. Identical text across files and across runs embeds
// once. Blank text bypasses the cache entirely; the zero vector is
// cheaper to build than to look up.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.Cache
}

// NewCached wraps inner with the given cache. A nil cache returns inner
// unchanged.
func NewCached(inner Embedder, c *cache.Cache) Embedder {
	if c == nil {
		return inner
	}
	return &CachedEmbedder{inner: inner, cache: c}
}

func (e *CachedEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return zeroVector(e.inner.Dimension()), nil
	}

	key := cacheKey(text)
	if data, ok := e.cache.Get(key); ok {
		var vector []float32
		if err := json.Unmarshal(data, &vector); err == nil && len(vector) == e.inner.Dimension() {
			return vector, nil
		}
	}

	vector, err := e.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	e.store(key, vector)
	return vector, nil
}

func (e *CachedEmbedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	// resolve what we can from the cache, collect the rest
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if isBlank(text) {
			results[i] = zeroVector(e.inner.Dimension())
			continue
		}
		if data, ok := e.cache.Get(cacheKey(text)); ok {
			var vector []float32
			if err := json.Unmarshal(data, &vector); err == nil && len(vector) == e.inner.Dimension() {
				results[i] = vector
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		vectors, err := e.inner.EncodeBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missTexts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrProviderFailed, len(vectors), len(missTexts))
		}
		for i, idx := range missIdx {
			results[idx] = vectors[i]
			e.store(cacheKey(missTexts[i]), vectors[i])
		}
	}

	return results, nil
}

func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}

func (e *CachedEmbedder) store(key string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := e.cache.Set(key, data); err != nil {
		// cache failures degrade performance, never correctness
		log.Printf("embedder: cache write failed: %v", err)
	}
}

func cacheKey(text string) string {
	return "embedding:" + ComputeTextHash(text)
}
