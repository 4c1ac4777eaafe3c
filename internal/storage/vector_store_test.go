package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorStoreAddAndSearch(t *testing.T) {
	s, err := NewVectorStore(3)
	require.NoError(t, err)

	require.NoError(t, s.Add([]float32{1, 0, 0}, "x"))
	require.NoError(t, s.Add([]float32{0, 1, 0}, "y"))
	require.NoError(t, s.Add([]float32{0, 0, 1}, "z"))
	assert.Equal(t, 3, s.Size())

	hits, err := s.Search([]float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].ChunkID)
	assert.Equal(t, "y", hits[1].ChunkID)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
}

func TestVectorStoreSelfNearest(t *testing.T) {
	s, err := NewVectorStore(4)
	require.NoError(t, err)

	vec := []float32{0.3, -0.7, 0.2, 0.9}
	require.NoError(t, s.Add(vec, "self"))
	require.NoError(t, s.Add([]float32{1, 1, 1, 1}, "other"))

	hits, err := s.Search(vec, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "self", hits[0].ChunkID)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
}

func TestVectorStoreDuplicateRejection(t *testing.T) {
	s, err := NewVectorStore(2)
	require.NoError(t, err)

	require.NoError(t, s.Add([]float32{1, 2}, "dup"))

	err = s.Add([]float32{3, 4}, "dup")
	require.ErrorIs(t, err, ErrDuplicateChunkID)

	// population unchanged by the rejected insert
	assert.Equal(t, 1, s.Size())
	hits, err := s.Search([]float32{1, 2}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
}

func TestVectorStoreDimensionMismatch(t *testing.T) {
	s, err := NewVectorStore(3)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Add([]float32{1, 2}, "short"), ErrDimensionMismatch)

	_, err = s.Search([]float32{1, 2, 3, 4}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestVectorStoreAddBatchAtomic(t *testing.T) {
	s, err := NewVectorStore(2)
	require.NoError(t, err)
	require.NoError(t, s.Add([]float32{0, 0}, "existing"))

	tests := []struct {
		name     string
		vectors  [][]float32
		chunkIDs []string
		wantErr  error
	}{
		{
			name:     "length mismatch",
			vectors:  [][]float32{{1, 1}},
			chunkIDs: []string{"a", "b"},
			wantErr:  ErrBatchLengthMismatch,
		},
		{
			name:     "duplicate within batch",
			vectors:  [][]float32{{1, 1}, {2, 2}},
			chunkIDs: []string{"a", "a"},
			wantErr:  ErrDuplicateChunkID,
		},
		{
			name:     "duplicate against store",
			vectors:  [][]float32{{1, 1}, {2, 2}},
			chunkIDs: []string{"a", "existing"},
			wantErr:  ErrDuplicateChunkID,
		},
		{
			name:     "dimension mismatch mid-batch",
			vectors:  [][]float32{{1, 1}, {2, 2, 2}},
			chunkIDs: []string{"a", "b"},
			wantErr:  ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddBatch(tt.vectors, tt.chunkIDs)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, s.Size(), "failed batch must not partially insert")
			assert.False(t, s.Contains("a"))
		})
	}

	require.NoError(t, s.AddBatch([][]float32{{1, 1}, {2, 2}}, []string{"a", "b"}))
	assert.Equal(t, 3, s.Size())
}

func TestVectorStoreTopKSaturation(t *testing.T) {
	s, err := NewVectorStore(1)
	require.NoError(t, err)
	require.NoError(t, s.Add([]float32{1}, "only"))

	hits, err := s.Search([]float32{0}, 100)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.Search([]float32{0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	s, err := NewVectorStore(3)
	require.NoError(t, err)
	require.NoError(t, s.AddBatch(
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.5, 0.5, 0}},
		[]string{"a", "b", "c"},
	))
	require.NoError(t, s.Save(path))

	loaded, err := LoadVectorStore(path)
	require.NoError(t, err)

	assert.Equal(t, s.Size(), loaded.Size())
	assert.Equal(t, s.ChunkIDs(), loaded.ChunkIDs())

	query := []float32{0.9, 0.2, 0}
	want, err := s.Search(query, 3)
	require.NoError(t, err)
	got, err := loaded.Search(query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got, "identical ordered hits after round trip")

	// dense-index allocation continues where it left off
	require.NoError(t, loaded.Add([]float32{0, 0, 1}, "d"))
	assert.Equal(t, 4, loaded.Size())
}

func TestVectorStoreLoadRequiresBothFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	s, err := NewVectorStore(2)
	require.NoError(t, err)
	require.NoError(t, s.Add([]float32{1, 2}, "a"))
	require.NoError(t, s.Save(path))

	t.Run("missing mappings", func(t *testing.T) {
		require.NoError(t, os.Remove(path+MappingsSuffix))
		_, err := LoadVectorStore(path)
		assert.Error(t, err)
	})

	t.Run("missing blob", func(t *testing.T) {
		require.NoError(t, s.Save(path))
		require.NoError(t, os.Remove(path))
		_, err := LoadVectorStore(path)
		assert.Error(t, err)
	})
}

func TestVectorStoreLoadRejectsCorruptBlob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	s, err := NewVectorStore(2)
	require.NoError(t, err)
	require.NoError(t, s.Add([]float32{1, 2}, "a"))
	require.NoError(t, s.Save(path))

	require.NoError(t, os.WriteFile(path, []byte("not a vector blob"), 0644))
	_, err = LoadVectorStore(path)
	assert.ErrorIs(t, err, ErrStoreCorrupt)
}

func TestVectorStoreRebuild(t *testing.T) {
	s, err := NewVectorStore(2)
	require.NoError(t, err)
	require.NoError(t, s.AddBatch(
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
		[]string{"keep1", "drop", "keep2"},
	))

	fresh, err := s.Rebuild([]string{"keep1", "keep2"})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Size())
	assert.True(t, fresh.Contains("keep1"))
	assert.True(t, fresh.Contains("keep2"))
	assert.False(t, fresh.Contains("drop"))

	// original untouched
	assert.Equal(t, 3, s.Size())

	hits, err := fresh.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "keep1", hits[0].ChunkID)

	_, err = s.Rebuild([]string{"missing"})
	assert.ErrorIs(t, err, ErrChunkNotFound)
}
