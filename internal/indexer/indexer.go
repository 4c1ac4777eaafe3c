package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pycontext/pycontext/internal/cache"
	"github.com/pycontext/pycontext/internal/chunker"
	"github.com/pycontext/pycontext/internal/embedder"
	"github.com/pycontext/pycontext/internal/parser"
	"github.com/pycontext/pycontext/internal/storage"
	"github.com/pycontext/pycontext/pkg/types"
)

// Indexer errors
var (
	ErrNotPythonFile = errors.New("not a python file")
	ErrNotDirectory  = errors.New("not a directory")
)

// Options configures an Indexer
type Options struct {
	// Embedder is required; its dimension sizes the vector store
	Embedder embedder.Embedder

	// QueryCache, when set, caches search results and is invalidated on
	// every index mutation. Embedding caching is the embedder's own
	// concern; see embedder.NewCached.
	QueryCache *cache.Cache
}

// Indexer orchestrates the pipeline: parse, chunk, embed, store. It owns
// the vector and metadata stores as a pair and is the only component
// that maintains the bijection between their chunk-id populations.
type Indexer struct {
	parser   *parser.Parser
	chunker  *chunker.Chunker
	embedder embedder.Embedder

	mu       sync.Mutex
	vectors  *storage.VectorStore
	metadata *storage.MetadataStore

	queryCache *cache.Cache

	// OnProgress, when set, is called after each file of a directory run
	OnProgress func(done, total int, path string)

	// cumulative run statistics
	filesProcessed int
	filesFailed    int
	chunksCreated  int
	fileErrors     []types.FileError
}

// New creates an indexer with empty stores
func New(opts Options) (*Indexer, error) {
	if opts.Embedder == nil {
		return nil, fmt.Errorf("indexer: embedder is required")
	}
	vectors, err := storage.NewVectorStore(opts.Embedder.Dimension())
	if err != nil {
		return nil, err
	}

	return &Indexer{
		parser:     parser.New(),
		chunker:    chunker.New(),
		embedder:   opts.Embedder,
		vectors:    vectors,
		metadata:   storage.NewMetadataStore(),
		queryCache: opts.QueryCache,
	}, nil
}

// IndexFile indexes one Python file and returns the number of chunks
// created. Contract violations (wrong extension, unreadable path) are
// errors; a file that parses with errors is a recoverable outcome:
// it is recorded in the statistics and yields zero chunks with a nil
// error.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	created, _, err := ix.indexFile(ctx, path)
	return created, err
}

// indexFile additionally reports a parse-failure reason, which is a
// recoverable outcome distinct from the error return.
func (ix *Indexer) indexFile(ctx context.Context, path string) (int, string, error) {
	if !strings.HasSuffix(path, ".py") {
		return 0, "", fmt.Errorf("%w: %s", ErrNotPythonFile, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, "", fmt.Errorf("%w: %s is a directory", ErrNotPythonFile, path)
	}

	// empty package markers produce nothing; skip the pipeline entirely
	if info.Size() == 0 && filepath.Base(path) == "__init__.py" {
		ix.mu.Lock()
		ix.filesProcessed++
		ix.mu.Unlock()
		return 0, "", nil
	}

	result := ix.parser.ParseFile(path)
	if result.Failed {
		ix.mu.Lock()
		ix.filesFailed++
		ix.fileErrors = append(ix.fileErrors, types.FileError{File: path, Error: result.Reason})
		ix.mu.Unlock()
		log.Printf("indexer: parse failed for %s: %s", path, result.Reason)
		return 0, result.Reason, nil
	}

	chunks := ix.chunker.ChunkFile(result.File)
	if len(chunks) == 0 {
		ix.mu.Lock()
		ix.filesProcessed++
		ix.mu.Unlock()
		return 0, "", nil
	}

	// validate every record before touching either store, so a bad
	// chunk can never leave the stores diverged
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return 0, "", fmt.Errorf("chunk %s from %s: %w", c.Name, path, err)
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.EmbeddingText()
	}
	vectors, err := ix.embedder.EncodeBatch(ctx, texts)
	if err != nil {
		return 0, "", fmt.Errorf("embed %s: %w", path, err)
	}

	chunkIDs := make([]string, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ChunkID
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.vectors.AddBatch(vectors, chunkIDs); err != nil {
		return 0, "", fmt.Errorf("index %s: %w", path, err)
	}
	for _, c := range chunks {
		if err := ix.metadata.Add(c.ChunkID, c); err != nil {
			// pre-validation makes this unreachable short of a bug;
			// restore the bijection before surfacing it
			ix.removeIDsLocked(chunkIDs)
			return 0, "", fmt.Errorf("metadata for %s: %w", path, err)
		}
	}

	ix.filesProcessed++
	ix.chunksCreated += len(chunks)
	ix.invalidateQueriesLocked()
	return len(chunks), "", nil
}

// IndexDirectory walks root and indexes every file matching pattern
// (doublestar syntax against the path relative to root; empty means
// "**/*.py"). Version-control, virtual-environment, and build
// directories are pruned at traversal level. Per-file failures are
// aggregated into the returned statistics and never abort the walk.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string, recursive bool, pattern string) (*types.Stats, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	files, err := discoverFiles(root, recursive, pattern)
	if err != nil {
		return nil, err
	}

	run := &types.Stats{}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		created, parseReason, err := ix.indexFile(ctx, path)
		switch {
		case err != nil:
			run.FilesFailed++
			run.Errors = append(run.Errors, types.FileError{File: path, Error: err.Error()})
			ix.mu.Lock()
			ix.filesFailed++
			ix.fileErrors = append(ix.fileErrors, types.FileError{File: path, Error: err.Error()})
			ix.mu.Unlock()
		case parseReason != "":
			run.FilesFailed++
			run.Errors = append(run.Errors, types.FileError{File: path, Error: parseReason})
		default:
			run.FilesProcessed++
			run.ChunksCreated += created
		}

		if ix.OnProgress != nil {
			ix.OnProgress(i+1, len(files), path)
		}
	}

	run.TotalChunks = ix.Size()
	run.TotalMetadata = ix.metadata.Size()
	return run, nil
}

// Search embeds query and returns up to topK results joined with their
// metadata, ordered by ascending distance. A vector hit whose chunk id
// has no metadata record cannot be rendered and is silently dropped.
func (ix *Indexer) Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	cacheKey := fmt.Sprintf("query:%s::%d", query, topK)
	if ix.queryCache != nil {
		if data, ok := ix.queryCache.Get(cacheKey); ok {
			var cached []types.SearchResult
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	vector, err := ix.embedder.Encode(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// snapshot the store pair together so a concurrent Load cannot swap
	// one half mid-join
	ix.mu.Lock()
	vectors := ix.vectors
	metadata := ix.metadata
	ix.mu.Unlock()

	hits, err := vectors.Search(vector, topK)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := metadata.Get(hit.ChunkID)
		if !ok {
			log.Printf("indexer: dropping hit %s: no metadata record", hit.ChunkID)
			continue
		}
		results = append(results, types.SearchResult{Chunk: chunk, Distance: hit.Distance})
	}

	if ix.queryCache != nil {
		if data, err := json.Marshal(results); err == nil {
			if err := ix.queryCache.Set(cacheKey, data); err != nil {
				log.Printf("indexer: query cache write failed: %v", err)
			}
		}
	}
	return results, nil
}

// RemoveFile deletes every chunk attributed to path from both stores and
// returns how many were removed. The vector store has no per-vector
// deletion, so removal rebuilds a fresh store from the survivors.
func (ix *Indexer) RemoveFile(path string) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	doomed := ix.metadata.SearchByField("file_path", path)
	if len(doomed) == 0 {
		return 0, nil
	}

	doomedIDs := make([]string, len(doomed))
	for i, c := range doomed {
		doomedIDs[i] = c.ChunkID
	}

	fresh, err := ix.vectors.Rebuild(ix.survivorsLocked(doomedIDs))
	if err != nil {
		return 0, fmt.Errorf("remove %s: %w", path, err)
	}

	ix.vectors = fresh
	for _, id := range doomedIDs {
		ix.metadata.Delete(id)
	}
	ix.invalidateQueriesLocked()
	return len(doomedIDs), nil
}

// ReindexFile removes any chunks previously indexed for path, then
// indexes it again. Prior chunk ids are retired, never reused.
func (ix *Indexer) ReindexFile(ctx context.Context, path string) (int, error) {
	if _, err := ix.RemoveFile(path); err != nil {
		return 0, err
	}
	return ix.IndexFile(ctx, path)
}

// Save persists both stores. They are written together; a search index
// without its metadata half is unusable.
func (ix *Indexer) Save(indexPath, metadataPath string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, p := range []string{indexPath, metadataPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
	}

	if err := ix.vectors.Save(indexPath); err != nil {
		return err
	}
	return ix.metadata.Save(metadataPath)
}

// Load replaces both stores from disk. The loaded pair must agree on
// chunk-id population and match the embedder's dimension; a divergent
// pair is refused rather than repaired.
func (ix *Indexer) Load(indexPath, metadataPath string) error {
	vectors, err := storage.LoadVectorStore(indexPath)
	if err != nil {
		return err
	}
	if vectors.Dimension() != ix.embedder.Dimension() {
		return fmt.Errorf("%w: index has %d, embedder has %d",
			storage.ErrDimensionMismatch, vectors.Dimension(), ix.embedder.Dimension())
	}

	metadata := storage.NewMetadataStore()
	if err := metadata.Load(metadataPath); err != nil {
		return err
	}

	if vectors.Size() != metadata.Size() {
		return fmt.Errorf("%w: %d vectors vs %d metadata records",
			storage.ErrStoreCorrupt, vectors.Size(), metadata.Size())
	}
	for _, id := range vectors.ChunkIDs() {
		if _, ok := metadata.Get(id); !ok {
			return fmt.Errorf("%w: vector %s has no metadata record", storage.ErrStoreCorrupt, id)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors = vectors
	ix.metadata = metadata
	ix.invalidateQueriesLocked()
	return nil
}

// Clear empties both stores. The fresh vector store starts a new dense
// index space; retired indices are never resurrected.
func (ix *Indexer) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	fresh, err := storage.NewVectorStore(ix.embedder.Dimension())
	if err != nil {
		return err
	}
	ix.vectors = fresh
	ix.metadata.Clear()
	ix.invalidateQueriesLocked()
	return nil
}

// Stats returns cumulative counters plus current store populations
func (ix *Indexer) Stats() *types.Stats {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	errs := make([]types.FileError, len(ix.fileErrors))
	copy(errs, ix.fileErrors)

	return &types.Stats{
		FilesProcessed: ix.filesProcessed,
		FilesFailed:    ix.filesFailed,
		ChunksCreated:  ix.chunksCreated,
		Errors:         errs,
		TotalChunks:    ix.vectors.Size(),
		TotalMetadata:  ix.metadata.Size(),
	}
}

// Size returns the number of indexed chunks
func (ix *Indexer) Size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.vectors.Size()
}

func (ix *Indexer) survivorsLocked(doomedIDs []string) []string {
	doomed := make(map[string]bool, len(doomedIDs))
	for _, id := range doomedIDs {
		doomed[id] = true
	}
	var survivors []string
	for _, id := range ix.vectors.ChunkIDs() {
		if !doomed[id] {
			survivors = append(survivors, id)
		}
	}
	return survivors
}

// removeIDsLocked rebuilds the vector store without the given ids,
// best effort. Used only on the unreachable metadata-failure path.
func (ix *Indexer) removeIDsLocked(ids []string) {
	if fresh, err := ix.vectors.Rebuild(ix.survivorsLocked(ids)); err == nil {
		ix.vectors = fresh
	}
	for _, id := range ids {
		ix.metadata.Delete(id)
	}
}

func (ix *Indexer) invalidateQueriesLocked() {
	if ix.queryCache == nil {
		return
	}
	if err := ix.queryCache.Clear(); err != nil {
		log.Printf("indexer: query cache invalidation failed: %v", err)
	}
}
