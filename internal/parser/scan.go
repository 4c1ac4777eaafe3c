package parser

import (
	"fmt"
	"strings"
)

// strState tracks whether the scanner is inside a string literal at a
// given point, and with which delimiter.
type strState struct {
	delim string // "", "'", `"`, "'''" or `"""`
	raw   bool   // r-prefixed: backslash is not an escape
}

// lineInfo is the per-line product of the scanning pass. eff is the line
// with string contents and comments removed, so structural scans can
// treat every remaining byte as code.
type lineInfo struct {
	eff        string
	entryState strState
	inString   bool // line begins inside a string literal
	depthStart int  // bracket nesting depth at line start
	depthEnd   int
}

// scanLines performs the single forward pass over the file: string and
// comment stripping plus bracket depth tracking. Unbalanced brackets and
// unterminated strings are syntax errors and fail the whole file.
func scanLines(lines []string) ([]lineInfo, error) {
	infos := make([]lineInfo, len(lines))
	st := strState{}
	depth := 0

	for li, line := range lines {
		info := &infos[li]
		info.entryState = st
		info.inString = st.delim != ""
		info.depthStart = depth

		var eff strings.Builder
		for i := 0; i < len(line); {
			ni, nst, emitted := scanStep(line, i, st)
			if emitted {
				c := line[i]
				eff.WriteByte(c)
				switch c {
				case '(', '[', '{':
					depth++
				case ')', ']', '}':
					depth--
					if depth < 0 {
						return nil, fmt.Errorf("unbalanced brackets at line %d", li+1)
					}
				}
			}
			i, st = ni, nst
		}

		// A single-quoted string cannot cross a physical line unless the
		// line ends with a continuation backslash.
		if len(st.delim) == 1 && !strings.HasSuffix(line, "\\") {
			return nil, fmt.Errorf("unterminated string literal at line %d", li+1)
		}

		info.eff = eff.String()
		info.depthEnd = depth
	}

	if st.delim != "" {
		return nil, fmt.Errorf("unterminated string literal at end of file")
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets at end of file")
	}
	return infos, nil
}

// scanStep advances the scanner by one token from byte position i.
// emitted reports whether the byte at i is an effective code byte,
// outside any string or comment.
func scanStep(line string, i int, st strState) (int, strState, bool) {
	if st.delim != "" {
		if !st.raw && line[i] == '\\' {
			return i + 2, st, false
		}
		if strings.HasPrefix(line[i:], st.delim) {
			n := len(st.delim)
			return i + n, strState{}, false
		}
		return i + 1, st, false
	}

	c := line[i]
	if c == '#' {
		return len(line), st, false
	}
	if c == '\'' || c == '"' {
		delim := string(c)
		if strings.HasPrefix(line[i:], delim+delim+delim) {
			delim = delim + delim + delim
		}
		return i + len(delim), strState{delim: delim, raw: isRawPrefixed(line, i)}, false
	}
	return i + 1, st, true
}

// isRawPrefixed reports whether the quote at position i carries an r
// prefix, as in r"..." or rb'...'.
func isRawPrefixed(line string, i int) bool {
	j := i
	raw := false
	for j > 0 {
		switch line[j-1] {
		case 'r', 'R':
			raw = true
			j--
		case 'b', 'B', 'u', 'U', 'f', 'F':
			j--
		default:
			// prefix letters must not be the tail of an identifier
			if isIdentByte(line[j-1]) {
				return false
			}
			return raw
		}
	}
	return raw
}

func isIdentByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// looksLikeString reports whether trimmed begins a string literal,
// allowing the standard prefix letters.
func looksLikeString(trimmed string) bool {
	i := 0
	for i < len(trimmed) {
		switch trimmed[i] {
		case 'r', 'R', 'b', 'B', 'u', 'U', 'f', 'F':
			i++
		case '\'', '"':
			return true
		default:
			return false
		}
	}
	return false
}

// parseStringAt parses the string literal starting at column col of
// lines[li] and returns its content and the index of the line it ends
// on. Escape sequences are kept verbatim; docstrings are embedded, not
// evaluated.
func parseStringAt(lines []string, li, col int) (string, int, bool) {
	s := lines[li][col:]
	i := 0
	raw := false
	for i < len(s) && s[i] != '\'' && s[i] != '"' {
		if s[i] == 'r' || s[i] == 'R' {
			raw = true
		}
		i++
	}
	if i == len(s) {
		return "", 0, false
	}

	delim := string(s[i])
	if strings.HasPrefix(s[i:], delim+delim+delim) {
		delim = delim + delim + delim
	}
	i += len(delim)

	var content strings.Builder
	cur := s
	for {
		for i < len(cur) {
			if !raw && cur[i] == '\\' {
				end := i + 2
				if end > len(cur) {
					end = len(cur)
				}
				content.WriteString(cur[i:end])
				i = end
				continue
			}
			if strings.HasPrefix(cur[i:], delim) {
				return content.String(), li, true
			}
			content.WriteByte(cur[i])
			i++
		}
		if len(delim) == 1 {
			return "", 0, false
		}
		li++
		if li >= len(lines) {
			return "", 0, false
		}
		content.WriteByte('\n')
		cur = lines[li]
		i = 0
	}
}

// cleanDocstring normalizes a docstring the way tooling conventionally
// does: the first line keeps only its own trimming, continuation lines
// lose their common leading indentation, and surrounding blank lines are
// dropped.
func cleanDocstring(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return ""
	}

	first := strings.TrimSpace(lines[0])

	minIndent := -1
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := indentWidth(l)
		if minIndent < 0 || n < minIndent {
			minIndent = n
		}
	}

	out := []string{first}
	for _, l := range lines[1:] {
		if minIndent > 0 && len(l) >= minIndent {
			l = l[minIndent:]
		}
		out = append(out, strings.TrimRight(l, " \t"))
	}

	result := strings.Join(out, "\n")
	return strings.Trim(result, "\n")
}
