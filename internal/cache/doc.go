// Package cache provides a two-tier TTL cache: a bounded in-memory LRU
// backed by an unbounded on-disk tier of JSON files.
//
// The indexing pipeline runs two independent instances: one for
// embedding vectors keyed by text digest, one for search results keyed
// by query and top-k. Keeping them separate lets index mutations
// invalidate query results without discarding embeddings, which remain
// valid for unchanged text.
package cache
