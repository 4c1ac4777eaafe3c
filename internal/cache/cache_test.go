package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, maxEntries int, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(Config{Dir: t.TempDir(), MaxEntries: maxEntries, TTL: ttl})
	require.NoError(t, err)
	return c
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	require.NoError(t, c.Set("k", []byte("value")))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	_, ok = c.Get("absent")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.MemoryEntries)
	assert.Equal(t, 1, stats.DiskEntries)
}

func TestCacheDiskPromotion(t *testing.T) {
	c := newTestCache(t, 2, time.Minute)

	// overflow the memory tier so "a" is evicted from memory only
	require.NoError(t, c.Set("a", []byte("1")))
	require.NoError(t, c.Set("b", []byte("2")))
	require.NoError(t, c.Set("c", []byte("3")))
	assert.Equal(t, 2, c.Stats().MemoryEntries)

	got, ok := c.Get("a")
	require.True(t, ok, "evicted entry must survive on disk")
	assert.Equal(t, []byte("1"), got)

	// the hit promoted it back into memory
	assert.True(t, c.memory.Contains("a"))
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }
	require.NoError(t, c.Set("k", []byte("v")))

	c.now = func() time.Time { return base.Add(30 * time.Second) }
	_, ok := c.Get("k")
	assert.True(t, ok)

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok = c.Get("k")
	assert.False(t, ok, "expired entry must miss")

	// eager eviction removed it from both tiers
	assert.Equal(t, 0, c.Stats().MemoryEntries)
	assert.Equal(t, 0, c.Stats().DiskEntries)
}

func TestCacheDiskTierExpiry(t *testing.T) {
	c := newTestCache(t, 2, time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }
	require.NoError(t, c.Set("a", []byte("1")))
	require.NoError(t, c.Set("b", []byte("2")))
	require.NoError(t, c.Set("c", []byte("3")))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok := c.Get("a")
	assert.False(t, ok, "disk-only entry past TTL must miss")
	assert.Equal(t, 2, c.Stats().DiskEntries, "expired disk entry is removed on access")
}

func TestCacheClear(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), []byte("v")))
	}
	c.Get("k0")
	c.Get("missing")

	require.NoError(t, c.Clear())

	stats := c.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.MemoryEntries)
	assert.Zero(t, stats.DiskEntries)

	_, ok := c.Get("k0")
	assert.False(t, ok)
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first, err := New(Config{Dir: dir, MaxEntries: 10, TTL: time.Minute})
	require.NoError(t, err)
	require.NoError(t, first.Set("k", []byte("survives")))

	second, err := New(Config{Dir: dir, MaxEntries: 10, TTL: time.Minute})
	require.NoError(t, err)

	got, ok := second.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("survives"), got)
}

func TestCacheKeysAreHashedOnDisk(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)
	require.NoError(t, c.Set("query:weird/../key with spaces", []byte("v")))

	got, ok := c.Get("query:weird/../key with spaces")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestCacheRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Dir: t.TempDir(), MaxEntries: 0, TTL: time.Minute})
	assert.Error(t, err)

	_, err = New(Config{Dir: "", MaxEntries: 10, TTL: time.Minute})
	assert.Error(t, err)
}
