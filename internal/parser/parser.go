package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pycontext/pycontext/pkg/types"
)

// Parser extracts structural elements from Python source files
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

var (
	defRe   = regexp.MustCompile(`^(async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)`)
	classRe = regexp.MustCompile(`^class\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// ParseFile parses a Python source file and extracts top-level functions,
// top-level classes, the module docstring, and the flattened import list.
// All failure modes (I/O, encoding, syntax) map to the same parse-failed
// result; callers must treat that as a recoverable per-file event. No
// partial structural data is returned for a file that failed to parse.
func (p *Parser) ParseFile(filePath string) *types.ParseResult {
	source, err := readSource(filePath)
	if err != nil {
		return types.FailedResult(err.Error())
	}

	lines := splitLines(source)

	infos, err := scanLines(lines)
	if err != nil {
		return types.FailedResult(err.Error())
	}

	parsed := &types.ParsedFile{FilePath: filePath}

	if err := p.extractModuleDoc(lines, infos, parsed); err != nil {
		return types.FailedResult(err.Error())
	}
	p.extractImports(lines, infos, parsed)

	if err := p.extractDefinitions(lines, infos, parsed); err != nil {
		return types.FailedResult(err.Error())
	}

	return &types.ParseResult{File: parsed}
}

// extractModuleDoc captures the module docstring: the first statement of
// the file if it is a string literal, empty otherwise.
func (p *Parser) extractModuleDoc(lines []string, infos []lineInfo, parsed *types.ParsedFile) error {
	for i, info := range infos {
		if info.inString {
			continue
		}
		raw := strings.TrimSpace(lines[i])
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		col := indentWidth(lines[i])
		if col != 0 {
			return nil
		}
		if !looksLikeString(raw) {
			return nil
		}
		content, endIdx, ok := parseStringAt(lines, i, col)
		if !ok {
			return fmt.Errorf("unterminated string literal at line %d", i+1)
		}
		parsed.ModuleDoc = cleanDocstring(content)
		parsed.ModuleDocStart = i + 1
		parsed.ModuleDocEnd = endIdx + 1
		return nil
	}
	return nil
}

// extractImports collects the deduplicated union of imported module names
// anywhere in the file, regardless of nesting depth, plus the verbatim
// statement lines for the imports chunk.
func (p *Parser) extractImports(lines []string, infos []lineInfo, parsed *types.ParsedFile) {
	seen := make(map[string]bool)

	for i, info := range infos {
		if info.inString || info.depthStart > 0 {
			continue
		}
		t := strings.TrimSpace(info.eff)
		if !strings.HasPrefix(t, "import ") && !strings.HasPrefix(t, "from ") {
			continue
		}
		names := importNames(t)
		if len(names) == 0 {
			continue
		}
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				parsed.Imports = append(parsed.Imports, name)
			}
		}

		// Capture the full statement, which may span lines via parens
		end := i
		for end < len(infos)-1 && infos[end].depthEnd > 0 {
			end++
		}
		stmt := make([]string, 0, end-i+1)
		for k := i; k <= end; k++ {
			stmt = append(stmt, strings.TrimRight(lines[k], " \t"))
		}
		parsed.ImportLines = append(parsed.ImportLines, strings.Join(stmt, "\n"))
		if parsed.ImportsStart == 0 {
			parsed.ImportsStart = i + 1
		}
		parsed.ImportsEnd = end + 1
	}
}

// extractDefinitions walks top-level def and class statements. Nested
// functions and methods are deliberately not extracted as independent
// definitions; methods surface only in their class's summary.
func (p *Parser) extractDefinitions(lines []string, infos []lineInfo, parsed *types.ParsedFile) error {
	for i := 0; i < len(infos); i++ {
		info := infos[i]
		if info.inString || info.depthStart > 0 || indentWidth(lines[i]) != 0 {
			continue
		}
		t := strings.TrimSpace(info.eff)
		if t == "" {
			continue
		}

		if m := defRe.FindStringSubmatch(t); m != nil {
			fn, next, err := p.parseFunction(lines, infos, i, m[2])
			if err != nil {
				return err
			}
			parsed.Functions = append(parsed.Functions, *fn)
			i = next
			continue
		}
		if m := classRe.FindStringSubmatch(t); m != nil {
			cls, next, err := p.parseClass(lines, infos, i, m[1])
			if err != nil {
				return err
			}
			parsed.Classes = append(parsed.Classes, *cls)
			i = next
		}
	}
	return nil
}

// parseFunction parses one top-level function beginning at line start.
// Returns the definition and the index of the block's last line.
func (p *Parser) parseFunction(lines []string, infos []lineInfo, start int, name string) (*types.FunctionDef, int, error) {
	header, headerEnd, inline, err := collectHeader(lines, infos, start)
	if err != nil {
		return nil, 0, err
	}

	endIdx := blockEnd(lines, infos, headerEnd, inline)
	doc := blockDocstring(lines, infos, headerEnd, inline)

	sig, err := buildSignature(header)
	if err != nil {
		return nil, 0, fmt.Errorf("line %d: %w", start+1, err)
	}

	return &types.FunctionDef{
		Name:      name,
		Signature: sig,
		Docstring: doc,
		Code:      strings.Join(lines[start:endIdx+1], "\n"),
		StartLine: start + 1,
		EndLine:   endIdx + 1,
	}, endIdx, nil
}

// parseClass parses one top-level class beginning at line start. The
// class chunk embeds its full source including all methods; methods are
// summarized by name only.
func (p *Parser) parseClass(lines []string, infos []lineInfo, start int, name string) (*types.ClassDef, int, error) {
	header, headerEnd, inline, err := collectHeader(lines, infos, start)
	if err != nil {
		return nil, 0, err
	}

	endIdx := blockEnd(lines, infos, headerEnd, inline)
	doc := blockDocstring(lines, infos, headerEnd, inline)
	bases := classBases(header)
	methods := classMethods(lines, infos, headerEnd, endIdx)

	return &types.ClassDef{
		Name:      name,
		Bases:     bases,
		Methods:   methods,
		Docstring: doc,
		Code:      strings.Join(lines[start:endIdx+1], "\n"),
		StartLine: start + 1,
		EndLine:   endIdx + 1,
	}, endIdx, nil
}

// collectHeader accumulates a def/class header across physical lines
// until the top-level colon that terminates it. Returns the joined
// header text, the index of its last line, and whether an inline body
// follows the colon on the same line.
func collectHeader(lines []string, infos []lineInfo, start int) (string, int, bool, error) {
	var header strings.Builder
	depth := 0

	for j := start; j < len(lines); j++ {
		eff := infos[j].eff
		for k := 0; k < len(eff); k++ {
			c := eff[k]
			switch c {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
			case ':':
				if depth == 0 {
					// header text uses the raw lines so defaults keep
					// their string literals
					col := headerColonColumn(lines, infos, start, j, k)
					for l := start; l < j; l++ {
						header.WriteString(strings.TrimSpace(stripCommentQuoted(lines[l])))
						header.WriteString(" ")
					}
					header.WriteString(strings.TrimSpace(lines[j][:col]))
					inline := strings.TrimSpace(stripComment(lines[j][col+1:])) != ""
					return header.String(), j, inline, nil
				}
			}
		}
	}
	return "", 0, false, fmt.Errorf("unterminated definition header at line %d", start+1)
}

// headerColonColumn maps a colon position in the effective (string- and
// comment-stripped) line back to its column in the raw line.
func headerColonColumn(lines []string, infos []lineInfo, start, j, effIdx int) int {
	// The effective line preserves only non-string, non-comment bytes in
	// order. Walk the raw line with the same scanner to find the raw
	// column of the effIdx-th effective byte.
	st := infos[j].entryState
	raw := lines[j]
	count := 0
	for i := 0; i < len(raw); {
		ni, nst, emitted := scanStep(raw, i, st)
		if emitted {
			if count == effIdx {
				return i
			}
			count++
		}
		i, st = ni, nst
	}
	// Fallback: last colon on the raw line outside any obvious string
	return strings.LastIndexByte(raw, ':')
}

// blockEnd finds the index of the last line belonging to the block whose
// header ends at headerEnd. Trailing blank and comment lines are not
// part of the block.
func blockEnd(lines []string, infos []lineInfo, headerEnd int, inline bool) int {
	if inline {
		return headerEnd
	}
	last := headerEnd
	for k := headerEnd + 1; k < len(lines); k++ {
		info := infos[k]
		if info.inString || info.depthStart > 0 {
			last = k
			continue
		}
		raw := strings.TrimSpace(lines[k])
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if indentWidth(lines[k]) == 0 {
			break
		}
		last = k
	}
	return last
}

// blockDocstring extracts the docstring of the block whose header ends
// at headerEnd: the first statement of the body if it is a string
// literal, empty string otherwise.
func blockDocstring(lines []string, infos []lineInfo, headerEnd int, inline bool) string {
	if inline {
		return ""
	}
	for k := headerEnd + 1; k < len(lines); k++ {
		info := infos[k]
		if info.inString {
			return ""
		}
		trimmed := strings.TrimSpace(lines[k])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !looksLikeString(trimmed) {
			return ""
		}
		content, _, ok := parseStringAt(lines, k, indentWidth(lines[k]))
		if !ok {
			return ""
		}
		return cleanDocstring(content)
	}
	return ""
}

// classBases extracts the base-class list from a class header, dropping
// keyword arguments such as metaclass=.
func classBases(header string) []string {
	open := strings.IndexByte(header, '(')
	if open < 0 {
		return nil
	}
	inner, ok := matchParen(header[open:])
	if !ok {
		return nil
	}
	var bases []string
	for _, part := range splitTopLevel(inner, ',') {
		part = strings.TrimSpace(part)
		if part == "" || containsTopLevel(part, '=') {
			continue
		}
		bases = append(bases, part)
	}
	return bases
}

// classMethods lists the names of def statements at the class body's
// indentation level.
func classMethods(lines []string, infos []lineInfo, headerEnd, endIdx int) []string {
	bodyIndent := ""
	for k := headerEnd + 1; k <= endIdx; k++ {
		if infos[k].inString || strings.TrimSpace(lines[k]) == "" {
			continue
		}
		bodyIndent = leadingWhitespace(lines[k])
		break
	}
	if bodyIndent == "" {
		return nil
	}

	var methods []string
	for k := headerEnd + 1; k <= endIdx; k++ {
		info := infos[k]
		if info.inString || info.depthStart > 0 {
			continue
		}
		raw := lines[k]
		if !strings.HasPrefix(raw, bodyIndent) {
			continue
		}
		rest := raw[len(bodyIndent):]
		if len(rest) == 0 || rest[0] == ' ' || rest[0] == '\t' {
			continue
		}
		if m := defRe.FindStringSubmatch(rest); m != nil {
			methods = append(methods, m[2])
		}
	}
	return methods
}

// importNames extracts module names from a single import statement line.
// Relative imports keep the named module with leading dots stripped;
// "from . import x" contributes nothing.
func importNames(t string) []string {
	if strings.HasPrefix(t, "from ") {
		idx := strings.Index(t, " import")
		if idx < 0 {
			return nil
		}
		mod := strings.TrimSpace(t[len("from "):idx])
		mod = strings.TrimLeft(mod, ".")
		if mod == "" || !validModuleName(mod) {
			return nil
		}
		return []string{mod}
	}

	rest := strings.TrimSpace(strings.TrimPrefix(t, "import "))
	var names []string
	for _, part := range strings.Split(rest, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if validModuleName(name) {
			names = append(names, name)
		}
	}
	return names
}

func validModuleName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r != '.' && r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') {
			return false
		}
	}
	return true
}

// readSource reads a file with UTF-8 as the primary encoding and
// Latin-1 as the permissive single-byte fallback.
func readSource(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read failed: %w", err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

func splitLines(source string) []string {
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func indentWidth(line string) int {
	return len(leadingWhitespace(line))
}

func leadingWhitespace(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			return line[:i]
		}
	}
	return line
}

func stripComment(s string) string {
	// callers only use this on text already known to be outside strings
	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// stripCommentQuoted removes a trailing comment from a line that starts
// outside any string, leaving quoted text intact.
func stripCommentQuoted(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '#':
			return s[:i]
		}
	}
	return s
}
