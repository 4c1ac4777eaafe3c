package parser

import (
	"fmt"
	"strings"
)

// buildSignature reconstructs a canonical one-line signature from a
// def header (colon already stripped). Formatting is normalized:
// annotated parameters render as "name: type = default", unannotated
// defaults as "name=default", and multi-line headers collapse to one
// line.
func buildSignature(header string) (string, error) {
	m := defRe.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return "", fmt.Errorf("malformed def header")
	}
	async := m[1] != ""
	name := m[2]

	open := strings.IndexByte(header, '(')
	if open < 0 {
		return "", fmt.Errorf("missing parameter list")
	}
	inner, ok := matchParen(header[open:])
	if !ok {
		return "", fmt.Errorf("unbalanced parentheses in parameter list")
	}

	var params []string
	for _, part := range splitTopLevel(inner, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		params = append(params, normalizeParam(part))
	}

	rest := header[open+len(inner)+2:]
	ret := ""
	if idx := strings.Index(rest, "->"); idx >= 0 {
		ret = strings.TrimSpace(rest[idx+2:])
	}

	var b strings.Builder
	if async {
		b.WriteString("async ")
	}
	b.WriteString("def ")
	b.WriteString(name)
	b.WriteString("(")
	b.WriteString(strings.Join(params, ", "))
	b.WriteString(")")
	if ret != "" {
		b.WriteString(" -> ")
		b.WriteString(ret)
	}
	return b.String(), nil
}

// normalizeParam rewrites one parameter to canonical spacing. Bare
// markers ("*", "/") and starred parameters keep their prefix.
func normalizeParam(p string) string {
	if p == "*" || p == "/" {
		return p
	}

	prefix := ""
	for strings.HasPrefix(p, "*") {
		prefix += "*"
		p = p[1:]
	}
	p = strings.TrimSpace(p)

	name, rest := p, ""
	if idx := indexTopLevel(p, ':'); idx >= 0 {
		name = strings.TrimSpace(p[:idx])
		rest = strings.TrimSpace(p[idx+1:])
	}

	if rest != "" {
		ann, def := rest, ""
		if idx := indexTopLevel(rest, '='); idx >= 0 {
			ann = strings.TrimSpace(rest[:idx])
			def = strings.TrimSpace(rest[idx+1:])
		}
		if def != "" {
			return fmt.Sprintf("%s%s: %s = %s", prefix, name, ann, def)
		}
		return fmt.Sprintf("%s%s: %s", prefix, name, ann)
	}

	if idx := indexTopLevel(name, '='); idx >= 0 {
		def := strings.TrimSpace(name[idx+1:])
		name = strings.TrimSpace(name[:idx])
		return fmt.Sprintf("%s%s=%s", prefix, name, def)
	}
	return prefix + name
}

// matchParen returns the contents of the balanced parenthesis group that
// s opens with, quotes respected.
func matchParen(s string) (string, bool) {
	if len(s) == 0 || s[0] != '(' {
		return "", false
	}
	depth := 0
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
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return s[1:i], true
			}
		}
	}
	return "", false
}

// splitTopLevel splits s on sep occurrences at bracket depth zero,
// outside quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
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
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if c == sep && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// indexTopLevel finds the first occurrence of c at bracket depth zero
// outside quotes, skipping comparison operators when c is '='.
func indexTopLevel(s string, c byte) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		b := s[i]
		if quote != 0 {
			if b == '\\' {
				i++
			} else if b == quote {
				quote = 0
			}
			continue
		}
		switch b {
		case '\'', '"':
			quote = b
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if b == c && depth == 0 {
				if c == '=' {
					if i+1 < len(s) && s[i+1] == '=' {
						i++
						continue
					}
					if i > 0 && (s[i-1] == '=' || s[i-1] == '!' || s[i-1] == '<' || s[i-1] == '>') {
						continue
					}
				}
				return i
			}
		}
	}
	return -1
}

func containsTopLevel(s string, c byte) bool {
	return indexTopLevel(s, c) >= 0
}
