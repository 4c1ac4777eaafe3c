// Package types defines the shared data model for the indexing pipeline.
//
// The central type is Chunk, the unit of retrieval: one top-level
// function, one class (with its methods folded in), the module
// docstring, or the import list of a file. Every chunk carries an opaque
// UUID identifier assigned at creation and never reused; identifiers are
// never derived from content, so re-chunking the same file yields fresh
// ids.
//
// ParsedFile is the transient intermediate between the parser and the
// chunker. SearchResult and Stats are the public result shapes returned
// by the indexer.
package types
