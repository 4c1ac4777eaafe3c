package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pycontext/pycontext/internal/cache"
	"github.com/pycontext/pycontext/internal/config"
	"github.com/pycontext/pycontext/internal/embedder"
	"github.com/pycontext/pycontext/internal/indexer"
)

// buildIndexer assembles the pipeline from configuration: embedding
// provider, optional embedding and query caches, and the indexer itself.
// The two caches are separate instances so that index mutations can
// invalidate query results without discarding embeddings.
func buildIndexer(cfg *config.Config) (*indexer.Indexer, error) {
	emb, err := embedder.New(embedder.Options{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		Endpoint:  cfg.Embedding.Endpoint,
		APIKeyEnv: cfg.Embedding.APIKeyEnv,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	var queryCache *cache.Cache
	if cfg.Cache.Enabled {
		embCache, err := cache.New(cache.Config{
			Dir:        filepath.Join(cfg.Cache.Dir, "embeddings"),
			MaxEntries: cfg.Cache.MaxEntries,
			TTL:        cfg.Cache.TTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		emb = embedder.NewCached(emb, embCache)

		queryCache, err = cache.New(cache.Config{
			Dir:        filepath.Join(cfg.Cache.Dir, "queries"),
			MaxEntries: cfg.Cache.MaxEntries,
			TTL:        cfg.Cache.TTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
	}

	return indexer.New(indexer.Options{Embedder: emb, QueryCache: queryCache})
}

// loadIfPresent restores persisted state when both halves exist. A fresh
// start is not an error; one half without the other is.
func loadIfPresent(ix *indexer.Indexer, cfg *config.Config) error {
	indexExists := fileExists(cfg.Index.IndexPath)
	metaExists := fileExists(cfg.Index.MetadataPath)

	switch {
	case indexExists && metaExists:
		return ix.Load(cfg.Index.IndexPath, cfg.Index.MetadataPath)
	case indexExists != metaExists:
		return fmt.Errorf("index state is incomplete: found one of %s and %s but not both",
			cfg.Index.IndexPath, cfg.Index.MetadataPath)
	default:
		return nil
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
