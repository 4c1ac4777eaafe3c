package types

// SearchResult pairs a chunk's metadata record with its distance from
// the query vector. Distance is squared Euclidean: non-negative,
// ascending, closer means more similar.
type SearchResult struct {
	Chunk    *Chunk  `json:"chunk"`
	Distance float64 `json:"distance"`
}

// FileError records a per-file failure during a directory indexing run
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Stats aggregates the outcome of indexing operations. Per-file failures
// accumulate here instead of aborting the run.
type Stats struct {
	FilesProcessed int         `json:"files_processed"`
	FilesFailed    int         `json:"files_failed"`
	ChunksCreated  int         `json:"chunks_created"`
	Errors         []FileError `json:"errors"`
	TotalChunks    int         `json:"total_chunks"`
	TotalMetadata  int         `json:"total_metadata"`
}
