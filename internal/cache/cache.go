package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Config controls a Cache instance
type Config struct {
	// Dir is the disk tier directory; created on demand
	Dir string
	// MaxEntries bounds the memory tier
	MaxEntries int
	// TTL is the entry lifetime, measured from write time
	TTL time.Duration
}

// Stats is a point-in-time snapshot of cache effectiveness
type Stats struct {
	Hits          int `json:"hits"`
	Misses        int `json:"misses"`
	MemoryEntries int `json:"memory_entries"`
	DiskEntries   int `json:"disk_entries"`
}

type entry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cache is a two-tier TTL cache: a bounded in-memory LRU in front of an
// unbounded directory of JSON files. Disk hits are promoted into memory.
// Expired entries are evicted eagerly on access in whichever tier they
// are found. Safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	memory *lru.Cache[string, entry]
	dir    string
	ttl    time.Duration
	hits   int
	misses int

	// test seam; defaults to time.Now
	now func() time.Time
}

// New creates a cache with the given configuration. The disk directory
// is created immediately so that a misconfigured path fails at
// construction, not on first write.
func New(cfg Config) (*Cache, error) {
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("cache: max entries must be positive, got %d", cfg.MaxEntries)
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache: directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	memory, err := lru.New[string, entry](cfg.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	return &Cache{
		memory: memory,
		dir:    cfg.Dir,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Get returns the cached value for key, or ok=false on miss. An expired
// entry counts as a miss and is removed from the tier it was found in.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.memory.Get(key); ok {
		if c.now().Before(e.ExpiresAt) {
			c.hits++
			return e.Value, true
		}
		c.memory.Remove(key)
	}

	path := c.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		c.misses++
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// corrupt entry: drop it rather than fail the lookup
		os.Remove(path)
		c.misses++
		return nil, false
	}
	if !c.now().Before(e.ExpiresAt) {
		os.Remove(path)
		c.misses++
		return nil, false
	}

	// promote
	c.memory.Add(key, e)
	c.hits++
	return e.Value, true
}

// Set stores value under key in both tiers, with the TTL counted from
// now.
func (c *Cache) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{Value: value, ExpiresAt: c.now().Add(c.ttl)}
	c.memory.Add(key, e)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: marshal entry: %w", err)
	}
	if err := os.WriteFile(c.entryPath(key), data, 0644); err != nil {
		return fmt.Errorf("cache: write entry: %w", err)
	}
	return nil
}

// Stats returns current hit/miss counters and tier populations. The disk
// count is a directory listing and includes not-yet-evicted expired
// entries.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	disk := 0
	if entries, err := os.ReadDir(c.dir); err == nil {
		for _, ent := range entries {
			if !ent.IsDir() && strings.HasSuffix(ent.Name(), ".json") {
				disk++
			}
		}
	}

	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		MemoryEntries: c.memory.Len(),
		DiskEntries:   disk,
	}
}

// Clear empties both tiers and resets the counters
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory.Purge()
	c.hits = 0
	c.misses = 0

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("cache: list directory: %w", err)
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, ent.Name())); err != nil {
			return fmt.Errorf("cache: remove entry: %w", err)
		}
	}
	return nil
}

// entryPath maps a logical key to its disk file. Keys are hashed so that
// arbitrary key content never reaches the filesystem.
func (c *Cache) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
