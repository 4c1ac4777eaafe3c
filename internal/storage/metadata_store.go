package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pycontext/pycontext/pkg/types"
)

// MetadataStore is a durable mapping from chunk id to chunk record. The
// in-memory map is the source of truth; Save and Load snapshot it to a
// pretty-printed JSON object keyed by chunk id. Safe for concurrent use.
type MetadataStore struct {
	mu      sync.RWMutex
	records map[string]*types.Chunk
}

// NewMetadataStore creates an empty metadata store
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{records: make(map[string]*types.Chunk)}
}

// Add stores chunk under chunkID after validating the record. The id
// argument must match the record's own id; the mismatch check guards
// against caller wiring bugs that would break the store bijection.
func (s *MetadataStore) Add(chunkID string, chunk *types.Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: nil chunk", types.ErrMissingField)
	}
	if err := chunk.Validate(); err != nil {
		return err
	}
	if chunk.ChunkID != chunkID {
		return fmt.Errorf("%w: key %q, record %q", ErrMetadataMismatch, chunkID, chunk.ChunkID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[chunkID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChunkID, chunkID)
	}
	s.records[chunkID] = chunk
	return nil
}

// Get returns the record for chunkID, or ok=false if absent
func (s *MetadataStore) Get(chunkID string) (*types.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.records[chunkID]
	return chunk, ok
}

// SearchByField returns every record whose named field equals value.
// Linear scan; there is no secondary index at the target scale of a
// single-codebase store. Supported fields are the scalar string fields
// of the record: file_path, chunk_type, and name.
func (s *MetadataStore) SearchByField(field, value string) []*types.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*types.Chunk
	for _, chunk := range s.records {
		var got string
		switch field {
		case "file_path":
			got = chunk.FilePath
		case "chunk_type":
			got = string(chunk.ChunkType)
		case "name":
			got = chunk.Name
		default:
			return nil
		}
		if got == value {
			matches = append(matches, chunk)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].FilePath != matches[j].FilePath {
			return matches[i].FilePath < matches[j].FilePath
		}
		return matches[i].StartLine < matches[j].StartLine
	})
	return matches
}

// Delete removes chunkID and reports whether it existed. Deleting an
// absent id is not an error.
func (s *MetadataStore) Delete(chunkID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[chunkID]; !ok {
		return false
	}
	delete(s.records, chunkID)
	return true
}

// Clear removes all records
func (s *MetadataStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*types.Chunk)
}

// Size returns the number of stored records
func (s *MetadataStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ChunkIDs returns all stored chunk ids in sorted order
func (s *MetadataStore) ChunkIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Save snapshots the store to path as a single pretty-printed JSON
// object mapping chunk id to record.
func (s *MetadataStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Load replaces the store contents from a snapshot at path. A missing
// file is a hard error; callers that want load-if-present must check
// existence first.
func (s *MetadataStore) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}

	records := make(map[string]*types.Chunk)
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: metadata: %v", ErrStoreCorrupt, err)
	}
	for id, chunk := range records {
		if chunk == nil || chunk.ChunkID != id {
			return fmt.Errorf("%w: record %q has mismatched id", ErrStoreCorrupt, id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	return nil
}
