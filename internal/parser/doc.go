// Package parser extracts the top-level structure of Python source
// files: module docstring, imports, functions, and classes.
//
// It is a structural scanner, not a full grammar: a single forward pass
// strips strings and comments and tracks bracket depth, and definitions
// are recognized at indentation zero. Nested functions stay inside their
// parent's code; methods stay inside their class. Files that cannot be
// scanned (unbalanced brackets, unterminated strings, unreadable bytes)
// produce a parse-failed result rather than an error, so one bad file
// never aborts a directory run.
package parser
