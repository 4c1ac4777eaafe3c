// Package storage holds the two persistent halves of the index: the
// vector store and the metadata store.
//
// The vector store is an exact flat index over squared Euclidean
// distance, persisted as a binary blob of little-endian float32 values
// plus a JSON sidecar with the chunk-id mappings. The metadata store is
// a chunk-id keyed map persisted as one pretty-printed JSON document.
//
// The two stores are always constructed, saved, and loaded together by
// the indexer, which maintains the bijection between their chunk-id
// populations. Neither store enforces that invariant alone; each only
// refuses the local violations it can see (duplicate ids, id/record
// mismatches).
package storage
