package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
)

// vectorMagic identifies the on-disk vector blob format
var vectorMagic = [4]byte{'P', 'C', 'V', 'X'}

const vectorFormatVersion = 1

// MappingsSuffix is appended to the vector store path for the id
// mapping sidecar. The blob and the sidecar are a pair: loading one
// without the other is a hard error.
const MappingsSuffix = ".mappings"

// Hit is one nearest-neighbor result: a chunk id and its squared
// Euclidean distance from the query.
type Hit struct {
	ChunkID  string
	Distance float64
}

// VectorStore is an exact flat nearest-neighbor index over fixed-
// dimension vectors, keyed externally by chunk id and internally by a
// monotonically assigned dense index. There is no per-vector deletion;
// removal is modeled as rebuilding a fresh store from the survivors.
// Safe for concurrent use.
type VectorStore struct {
	mu           sync.RWMutex
	dimension    int
	vectors      map[int][]float32
	chunkIDToIdx map[string]int
	idxToChunkID map[int]string
	nextIdx      int
}

// NewVectorStore creates an empty store for vectors of the given
// dimension.
func NewVectorStore(dimension int) (*VectorStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}
	return &VectorStore{
		dimension:    dimension,
		vectors:      make(map[int][]float32),
		chunkIDToIdx: make(map[string]int),
		idxToChunkID: make(map[int]string),
	}, nil
}

// Add inserts one vector under chunkID. Fails on dimension mismatch or
// if the id already exists; there is no silent overwrite.
func (s *VectorStore) Add(vector []float32, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(vector, chunkID)
}

func (s *VectorStore) addLocked(vector []float32, chunkID string) error {
	if len(vector) != s.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dimension)
	}
	if _, exists := s.chunkIDToIdx[chunkID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChunkID, chunkID)
	}

	idx := s.nextIdx
	s.nextIdx++

	stored := make([]float32, len(vector))
	copy(stored, vector)
	s.vectors[idx] = stored
	s.chunkIDToIdx[chunkID] = idx
	s.idxToChunkID[idx] = chunkID
	return nil
}

// AddBatch inserts vectors[i] under chunkIDs[i] for all i. Validation
// runs over the whole batch before anything is committed, so a failed
// batch leaves the store unchanged.
func (s *VectorStore) AddBatch(vectors [][]float32, chunkIDs []string) error {
	if len(vectors) != len(chunkIDs) {
		return fmt.Errorf("%w: %d vectors, %d chunk ids", ErrBatchLengthMismatch, len(vectors), len(chunkIDs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(chunkIDs))
	for i, id := range chunkIDs {
		if len(vectors[i]) != s.dimension {
			return fmt.Errorf("%w: item %d has %d, want %d", ErrDimensionMismatch, i, len(vectors[i]), s.dimension)
		}
		if seen[id] {
			return fmt.Errorf("%w: %s appears twice in batch", ErrDuplicateChunkID, id)
		}
		if _, exists := s.chunkIDToIdx[id]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateChunkID, id)
		}
		seen[id] = true
	}

	for i, id := range chunkIDs {
		// already validated; addLocked cannot fail here
		if err := s.addLocked(vectors[i], id); err != nil {
			return err
		}
	}
	return nil
}

// Search returns up to topK chunk ids ordered by ascending squared
// Euclidean distance from query. Fewer results than topK is not an
// error. Ties break on insertion order for deterministic output.
func (s *VectorStore) Search(query []float32, topK int) ([]Hit, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(query), s.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		idx      int
		distance float64
	}
	candidates := make([]scored, 0, len(s.vectors))
	for idx, vec := range s.vectors {
		candidates = append(candidates, scored{idx: idx, distance: squaredEuclidean(query, vec)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].idx < candidates[j].idx
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	hits := make([]Hit, topK)
	for i := 0; i < topK; i++ {
		hits[i] = Hit{ChunkID: s.idxToChunkID[candidates[i].idx], Distance: candidates[i].distance}
	}
	return hits, nil
}

// Contains reports whether chunkID is present
func (s *VectorStore) Contains(chunkID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.chunkIDToIdx[chunkID]
	return ok
}

// Size returns the number of stored vectors
func (s *VectorStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Dimension returns the configured vector width
func (s *VectorStore) Dimension() int {
	return s.dimension
}

// ChunkIDs returns all stored chunk ids in dense-index order
func (s *VectorStore) ChunkIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indices := make([]int, 0, len(s.idxToChunkID))
	for idx := range s.idxToChunkID {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	ids := make([]string, len(indices))
	for i, idx := range indices {
		ids[i] = s.idxToChunkID[idx]
	}
	return ids
}

// Rebuild constructs a fresh store containing only the vectors for the
// keep ids, assigned new dense indices. Every id in keep must exist.
func (s *VectorStore) Rebuild(keep []string) (*VectorStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fresh, err := NewVectorStore(s.dimension)
	if err != nil {
		return nil, err
	}
	for _, id := range keep {
		idx, ok := s.chunkIDToIdx[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, id)
		}
		if err := fresh.Add(s.vectors[idx], id); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

type vectorMappings struct {
	ChunkIDToIdx map[string]int    `json:"chunk_id_to_idx"`
	IdxToChunkID map[string]string `json:"idx_to_chunk_id"`
	NextIdx      int               `json:"next_idx"`
	Dimension    int               `json:"dimension"`
}

// Save persists the store as two files: the vector blob at path and the
// id mappings at path plus MappingsSuffix.
func (s *VectorStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indices := make([]int, 0, len(s.vectors))
	for idx := range s.vectors {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	buf := make([]byte, 0, 16+len(indices)*(4+s.dimension*4))
	buf = append(buf, vectorMagic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, vectorFormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(s.dimension))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(indices)))
	for _, idx := range indices {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(idx))
		for _, v := range s.vectors[idx] {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write vector blob: %w", err)
	}

	m := vectorMappings{
		ChunkIDToIdx: s.chunkIDToIdx,
		IdxToChunkID: make(map[string]string, len(s.idxToChunkID)),
		NextIdx:      s.nextIdx,
		Dimension:    s.dimension,
	}
	for idx, id := range s.idxToChunkID {
		m.IdxToChunkID[strconv.Itoa(idx)] = id
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mappings: %w", err)
	}
	if err := os.WriteFile(path+MappingsSuffix, data, 0644); err != nil {
		return fmt.Errorf("write mappings: %w", err)
	}
	return nil
}

// LoadVectorStore reads a store saved by Save. Both the blob and the
// mappings sidecar must be present; a missing half is a hard error,
// never a partial load.
func LoadVectorStore(path string) (*VectorStore, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vector blob: %w", err)
	}
	mapData, err := os.ReadFile(path + MappingsSuffix)
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}

	var m vectorMappings
	if err := json.Unmarshal(mapData, &m); err != nil {
		return nil, fmt.Errorf("%w: mappings: %v", ErrStoreCorrupt, err)
	}

	if len(blob) < 16 {
		return nil, fmt.Errorf("%w: blob truncated", ErrStoreCorrupt)
	}
	if [4]byte(blob[:4]) != vectorMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrStoreCorrupt)
	}
	version := binary.LittleEndian.Uint32(blob[4:8])
	if version != vectorFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrStoreCorrupt, version)
	}
	dimension := int(binary.LittleEndian.Uint32(blob[8:12]))
	count := int(binary.LittleEndian.Uint32(blob[12:16]))
	if dimension != m.Dimension {
		return nil, fmt.Errorf("%w: blob dimension %d, mappings dimension %d", ErrStoreCorrupt, dimension, m.Dimension)
	}

	s, err := NewVectorStore(dimension)
	if err != nil {
		return nil, err
	}

	record := 4 + dimension*4
	if len(blob) != 16+count*record {
		return nil, fmt.Errorf("%w: blob size %d does not match %d vectors", ErrStoreCorrupt, len(blob), count)
	}

	off := 16
	for i := 0; i < count; i++ {
		idx := int(binary.LittleEndian.Uint32(blob[off : off+4]))
		off += 4
		vec := make([]float32, dimension)
		for j := 0; j < dimension; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(blob[off : off+4]))
			off += 4
		}

		id, ok := m.IdxToChunkID[strconv.Itoa(idx)]
		if !ok {
			return nil, fmt.Errorf("%w: dense index %d missing from mappings", ErrStoreCorrupt, idx)
		}
		s.vectors[idx] = vec
		s.chunkIDToIdx[id] = idx
		s.idxToChunkID[idx] = id
	}

	if len(m.ChunkIDToIdx) != count {
		return nil, fmt.Errorf("%w: mappings list %d ids, blob has %d vectors", ErrStoreCorrupt, len(m.ChunkIDToIdx), count)
	}
	s.nextIdx = m.NextIdx
	return s, nil
}

func squaredEuclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
