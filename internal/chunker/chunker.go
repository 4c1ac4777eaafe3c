package chunker

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pycontext/pycontext/pkg/types"
)

// Chunker converts a parsed file into retrievable chunks
type Chunker struct{}

// New creates a new Chunker instance
func New() *Chunker {
	return &Chunker{}
}

// ChunkFile transforms one parsed file into zero or more chunks: at most
// one module chunk, at most one imports chunk, one per top-level
// function, one per top-level class. Every chunk receives a freshly
// generated UUID; ids are never derived from content, so chunking the
// same file twice yields distinct ids.
func (c *Chunker) ChunkFile(parsed *types.ParsedFile) []*types.Chunk {
	var chunks []*types.Chunk

	if doc := strings.TrimSpace(parsed.ModuleDoc); doc != "" {
		chunks = append(chunks, c.moduleChunk(parsed, doc))
	}
	if len(parsed.Imports) > 0 {
		chunks = append(chunks, c.importsChunk(parsed))
	}
	for i := range parsed.Functions {
		chunks = append(chunks, c.functionChunk(parsed, &parsed.Functions[i]))
	}
	for i := range parsed.Classes {
		chunks = append(chunks, c.classChunk(parsed, &parsed.Classes[i]))
	}

	return chunks
}

func (c *Chunker) moduleChunk(parsed *types.ParsedFile, doc string) *types.Chunk {
	return &types.Chunk{
		ChunkID:   uuid.NewString(),
		FilePath:  parsed.FilePath,
		ChunkType: types.ChunkModule,
		Name:      moduleName(parsed.FilePath),
		StartLine: parsed.ModuleDocStart,
		EndLine:   parsed.ModuleDocEnd,
		Code:      doc,
		Docstring: doc,
		Imports:   parsed.Imports,
	}
}

func (c *Chunker) importsChunk(parsed *types.ParsedFile) *types.Chunk {
	return &types.Chunk{
		ChunkID:   uuid.NewString(),
		FilePath:  parsed.FilePath,
		ChunkType: types.ChunkImports,
		Name:      "imports",
		StartLine: parsed.ImportsStart,
		EndLine:   parsed.ImportsEnd,
		Code:      strings.Join(parsed.ImportLines, "\n"),
		Imports:   parsed.Imports,
	}
}

func (c *Chunker) functionChunk(parsed *types.ParsedFile, fn *types.FunctionDef) *types.Chunk {
	return &types.Chunk{
		ChunkID:   uuid.NewString(),
		FilePath:  parsed.FilePath,
		ChunkType: types.ChunkFunction,
		Name:      fn.Name,
		StartLine: fn.StartLine,
		EndLine:   fn.EndLine,
		Code:      fn.Code,
		Docstring: fn.Docstring,
		Signature: fn.Signature,
		Imports:   parsed.Imports,
	}
}

func (c *Chunker) classChunk(parsed *types.ParsedFile, cls *types.ClassDef) *types.Chunk {
	return &types.Chunk{
		ChunkID:   uuid.NewString(),
		FilePath:  parsed.FilePath,
		ChunkType: types.ChunkClass,
		Name:      cls.Name,
		StartLine: cls.StartLine,
		EndLine:   cls.EndLine,
		Code:      cls.Code,
		Docstring: cls.Docstring,
		Bases:     cls.Bases,
		Methods:   cls.Methods,
		Imports:   parsed.Imports,
	}
}

// moduleName derives the synthetic name of a module chunk from the file
// path: the base name without its extension.
func moduleName(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
