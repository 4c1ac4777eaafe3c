package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ChunkType represents the kind of code chunk
type ChunkType string

const (
	ChunkModule   ChunkType = "module"
	ChunkImports  ChunkType = "imports"
	ChunkFunction ChunkType = "function"
	ChunkClass    ChunkType = "class"
)

// Chunk is the unit of retrieval: one top-level function, one class with
// all of its methods, the module docstring, or the import list of a file.
// A chunk is immutable once created; updates are modeled as delete and
// recreate at the indexer level.
type Chunk struct {
	// Identification
	ChunkID  string `json:"chunk_id"`
	FilePath string `json:"file_path"`

	// Classification
	ChunkType ChunkType `json:"chunk_type"`
	Name      string    `json:"name"`

	// Location (1-indexed, inclusive)
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Content
	Code      string   `json:"code"`
	Docstring string   `json:"docstring"`
	Imports   []string `json:"imports,omitempty"`

	// Function extras
	Signature string `json:"signature,omitempty"`

	// Class extras
	Methods []string `json:"methods,omitempty"`
	Bases   []string `json:"bases,omitempty"`
}

// ValidateChunkType checks if the chunk type is one of the known kinds
func (c *Chunk) ValidateChunkType() error {
	switch c.ChunkType {
	case ChunkModule, ChunkImports, ChunkFunction, ChunkClass:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidChunkType, c.ChunkType)
	}
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if c.ChunkID == "" {
		return fmt.Errorf("%w: chunk_id", ErrMissingField)
	}
	if c.FilePath == "" {
		return fmt.Errorf("%w: file_path", ErrMissingField)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if err := c.ValidateChunkType(); err != nil {
		return err
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return fmt.Errorf("%w: line numbers must be positive", ErrInvalidLineRange)
	}
	if c.StartLine > c.EndLine {
		return fmt.Errorf("%w: start %d after end %d", ErrInvalidLineRange, c.StartLine, c.EndLine)
	}
	return nil
}

// EmbeddingText composes the canonical text the embedder consumes for
// this chunk. The composition is part of the index format contract:
// changing it changes retrieval behavior for every stored vector.
func (c *Chunk) EmbeddingText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s", c.ChunkType, c.Name)

	switch c.ChunkType {
	case ChunkFunction:
		if c.Signature != "" {
			b.WriteString("\n")
			b.WriteString(c.Signature)
		}
	case ChunkClass:
		if len(c.Bases) > 0 {
			b.WriteString("\nBases: ")
			b.WriteString(strings.Join(c.Bases, ", "))
		}
	}

	if c.Docstring != "" {
		b.WriteString("\nDocumentation: ")
		b.WriteString(c.Docstring)
	}

	b.WriteString("\nCode:\n")
	b.WriteString(c.Code)

	return b.String()
}

// Summary returns a short one-line description for display purposes,
// independent of the embedding text.
func (c *Chunk) Summary() string {
	return fmt.Sprintf("%s '%s' in %s:%d", c.ChunkType, c.Name, filepath.Base(c.FilePath), c.StartLine)
}
