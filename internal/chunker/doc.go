// Package chunker turns parsed Python files into retrievable chunks.
//
// The chunk granularity is deliberately coarse: one chunk per top-level
// function, one per class with its methods folded in, plus the module
// docstring and the import list when present. The embeddable-text
// composition lives on the Chunk type itself; this package only decides
// what becomes a chunk.
package chunker
