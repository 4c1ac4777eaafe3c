package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
}

// EmbeddingConfig selects and configures the embedding provider
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// IndexConfig locates the persisted index files
type IndexConfig struct {
	IndexPath    string `yaml:"index_path"`
	MetadataPath string `yaml:"metadata_path"`
}

// SearchConfig holds query-time defaults
type SearchConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
}

// CacheConfig controls the embedding and query caches
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	MaxEntries int    `yaml:"max_entries"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the cache lifetime as a duration
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Default returns the built-in configuration: local deterministic
// embeddings and state under ~/.pycontext.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".pycontext")

	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "local",
			Dimension: 384,
			BatchSize: 50,
		},
		Index: IndexConfig{
			IndexPath:    filepath.Join(base, "index.bin"),
			MetadataPath: filepath.Join(base, "metadata.json"),
		},
		Search: SearchConfig{
			TopK: 10,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Dir:        filepath.Join(base, "cache"),
			MaxEntries: 1000,
			TTLSeconds: 24 * 60 * 60,
		},
	}
}

// Load reads a YAML config file over the defaults, so a partial file
// only overrides what it names.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("config: embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("config: embedding batch size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("config: search top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Index.IndexPath == "" || c.Index.MetadataPath == "" {
		return fmt.Errorf("config: index_path and metadata_path are required")
	}
	if c.Cache.Enabled {
		if c.Cache.Dir == "" {
			return fmt.Errorf("config: cache dir is required when cache is enabled")
		}
		if c.Cache.MaxEntries <= 0 {
			return fmt.Errorf("config: cache max_entries must be positive, got %d", c.Cache.MaxEntries)
		}
	}
	return nil
}
