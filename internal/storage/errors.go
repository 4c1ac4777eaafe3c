package storage

import "errors"

// Contract-violation and persistence errors
var (
	ErrDimensionMismatch   = errors.New("vector dimension mismatch")
	ErrDuplicateChunkID    = errors.New("duplicate chunk id")
	ErrBatchLengthMismatch = errors.New("batch length mismatch")
	ErrChunkNotFound       = errors.New("chunk not found")
	ErrMetadataMismatch    = errors.New("metadata chunk id mismatch")
	ErrStoreCorrupt        = errors.New("store file corrupt")
)
