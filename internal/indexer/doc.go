// Package indexer orchestrates the indexing pipeline: parse, chunk,
// embed, store, and query.
//
// The indexer is the integration point that owns both stores and the
// subsystem's core consistency invariant: after every operation, the set
// of chunk ids in the vector store equals the set of chunk ids in the
// metadata store. Writes are ordered to keep that true under partial
// failure: chunks are validated first, vectors are committed as one
// atomic batch, and metadata records are added last.
//
// Per-file problems during a directory run (syntax errors, unreadable
// files) are recorded in the run statistics and never abort the walk.
package indexer
