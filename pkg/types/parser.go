package types

// ParsedFile represents the structural elements extracted from one
// Python source file. It is transient: produced by the parser and
// consumed only by the chunker, never persisted.
type ParsedFile struct {
	FilePath  string
	ModuleDoc string

	// Line range of the module docstring literal, when present
	ModuleDocStart int
	ModuleDocEnd   int

	// Deduplicated module names imported anywhere in the file,
	// in first-occurrence order
	Imports []string

	// Verbatim import statement lines, for the imports chunk
	ImportLines []string

	// Line range spanned by the import statements, when any exist
	ImportsStart int
	ImportsEnd   int

	Functions []FunctionDef
	Classes   []ClassDef
}

// FunctionDef describes a top-level function
type FunctionDef struct {
	Name      string
	Signature string
	Docstring string
	Code      string
	StartLine int
	EndLine   int
}

// ClassDef describes a top-level class. Methods are summarized here and
// retrieved as part of the class chunk, never independently.
type ClassDef struct {
	Name      string
	Bases     []string
	Methods   []string
	Docstring string
	Code      string
	StartLine int
	EndLine   int
}

// ParseResult is the outcome of parsing a single file. A failed parse is
// an expected per-file event, not an error: syntax errors, encoding
// errors, and I/O errors during parse all map to Failed=true with no
// partial structural data.
type ParseResult struct {
	File   *ParsedFile
	Failed bool
	Reason string
}

// FailedResult constructs a parse-failed result with the given reason
func FailedResult(reason string) *ParseResult {
	return &ParseResult{Failed: true, Reason: reason}
}
