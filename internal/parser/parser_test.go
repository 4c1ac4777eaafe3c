package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseSimpleFunction(t *testing.T) {
	path := writeSource(t, "simple.py", `def add(a, b):
    """Add two numbers."""
    return a + b
`)

	result := New().ParseFile(path)
	require.False(t, result.Failed, result.Reason)
	require.Len(t, result.File.Functions, 1)

	fn := result.File.Functions[0]
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, "def add(a, b)", fn.Signature)
	assert.Equal(t, "Add two numbers.", fn.Docstring)
	assert.Equal(t, 1, fn.StartLine)
	assert.Equal(t, 3, fn.EndLine)
	assert.Contains(t, fn.Code, "return a + b")
}

func TestParseSignatureNormalization(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "annotations and defaults",
			source: "def f(a:int=3, b = 'x', *args, **kwargs) -> int:\n    pass\n",
			want:   "def f(a: int = 3, b='x', *args, **kwargs) -> int",
		},
		{
			name:   "multi-line header",
			source: "def g(\n    a: str,\n    b: int = 0,\n) -> None:\n    pass\n",
			want:   "def g(a: str, b: int = 0) -> None",
		},
		{
			name:   "async def",
			source: "async def fetch(url: str) -> bytes:\n    pass\n",
			want:   "async def fetch(url: str) -> bytes",
		},
		{
			name:   "positional and keyword markers",
			source: "def h(a, /, b, *, c):\n    pass\n",
			want:   "def h(a, /, b, *, c)",
		},
		{
			name:   "default containing comma",
			source: "def k(pair=(1, 2), mapping={'a': 1}):\n    pass\n",
			want:   "def k(pair=(1, 2), mapping={'a': 1})",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, "sig.py", tt.source)
			result := New().ParseFile(path)
			require.False(t, result.Failed, result.Reason)
			require.Len(t, result.File.Functions, 1)
			assert.Equal(t, tt.want, result.File.Functions[0].Signature)
		})
	}
}

func TestParseClass(t *testing.T) {
	path := writeSource(t, "shapes.py", `class Circle(Shape, metaclass=ABCMeta):
    """A circle."""

    def __init__(self, radius):
        self.radius = radius

    def area(self):
        return 3.14159 * self.radius ** 2


def standalone():
    pass
`)

	result := New().ParseFile(path)
	require.False(t, result.Failed, result.Reason)
	require.Len(t, result.File.Classes, 1)

	cls := result.File.Classes[0]
	assert.Equal(t, "Circle", cls.Name)
	assert.Equal(t, []string{"Shape"}, cls.Bases)
	assert.Equal(t, []string{"__init__", "area"}, cls.Methods)
	assert.Equal(t, "A circle.", cls.Docstring)
	assert.Contains(t, cls.Code, "self.radius ** 2")

	// methods never surface as top-level functions
	require.Len(t, result.File.Functions, 1)
	assert.Equal(t, "standalone", result.File.Functions[0].Name)
}

func TestParseModuleDocAndImports(t *testing.T) {
	path := writeSource(t, "mod.py", `"""Utilities for geometry.

Shared helpers.
"""
import os
import sys as system
from collections import defaultdict
from . import sibling
from .relative import thing

def use():
    import os
    import json
`)

	result := New().ParseFile(path)
	require.False(t, result.Failed, result.Reason)

	f := result.File
	assert.Equal(t, "Utilities for geometry.\n\nShared helpers.", f.ModuleDoc)
	assert.Equal(t, 1, f.ModuleDocStart)
	assert.Equal(t, 4, f.ModuleDocEnd)

	// deduplicated, first-occurrence order, relative dots stripped,
	// bare-relative dropped
	assert.Equal(t, []string{"os", "sys", "collections", "relative", "json"}, f.Imports)
}

func TestParseMultiLineImport(t *testing.T) {
	path := writeSource(t, "imp.py", `from typing import (
    List,
    Optional,
)
`)

	result := New().ParseFile(path)
	require.False(t, result.Failed, result.Reason)
	assert.Equal(t, []string{"typing"}, result.File.Imports)
	require.Len(t, result.File.ImportLines, 1)
	assert.Contains(t, result.File.ImportLines[0], "Optional")
	assert.Equal(t, 1, result.File.ImportsStart)
	assert.Equal(t, 4, result.File.ImportsEnd)
}

func TestParseEmptyFile(t *testing.T) {
	path := writeSource(t, "empty.py", "")

	result := New().ParseFile(path)
	require.False(t, result.Failed)
	assert.Empty(t, result.File.Functions)
	assert.Empty(t, result.File.Classes)
	assert.Empty(t, result.File.Imports)
	assert.Empty(t, result.File.ModuleDoc)
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unbalanced open bracket", "def f(a, b:\n    pass\n"},
		{"unbalanced close bracket", "x = 1)\n"},
		{"unterminated triple string", "def f():\n    '''open forever\n"},
		{"unterminated single string", "x = 'no close\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, "bad.py", tt.source)
			result := New().ParseFile(path)
			assert.True(t, result.Failed)
			assert.NotEmpty(t, result.Reason)
			assert.Nil(t, result.File)
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	result := New().ParseFile(filepath.Join(t.TempDir(), "absent.py"))
	assert.True(t, result.Failed)
	assert.NotEmpty(t, result.Reason)
}

func TestParseStringsAreOpaque(t *testing.T) {
	path := writeSource(t, "tricky.py", `CODE = """
def not_a_function():
    pass
"""

COMMENTISH = "# not a comment: def nope():"

def real():
    return CODE
`)

	result := New().ParseFile(path)
	require.False(t, result.Failed, result.Reason)
	require.Len(t, result.File.Functions, 1)
	assert.Equal(t, "real", result.File.Functions[0].Name)
}

func TestParseBlockBoundaries(t *testing.T) {
	path := writeSource(t, "bounds.py", `def first():
    x = 1

    return x

# trailing comment between blocks

def second():
    pass
`)

	result := New().ParseFile(path)
	require.False(t, result.Failed, result.Reason)
	require.Len(t, result.File.Functions, 2)

	first := result.File.Functions[0]
	assert.Equal(t, 1, first.StartLine)
	assert.Equal(t, 4, first.EndLine)
	assert.NotContains(t, first.Code, "trailing comment")

	second := result.File.Functions[1]
	assert.Equal(t, 8, second.StartLine)
	assert.Equal(t, 9, second.EndLine)
}

func TestCleanDocstring(t *testing.T) {
	in := "Summary line.\n\n        Indented detail.\n        More detail.\n    "
	assert.Equal(t, "Summary line.\n\nIndented detail.\nMore detail.", cleanDocstring(in))
}
