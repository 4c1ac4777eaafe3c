package indexer

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches every Python file under the root
const DefaultPattern = "**/*.py"

// excludedDirs are pruned at traversal level: their contents are never
// visited, so files inside them cannot produce chunks regardless of the
// match pattern.
var excludedDirs = map[string]bool{
	".git":          true,
	"__pycache__":   true,
	"venv":          true,
	".venv":         true,
	"env":           true,
	"node_modules":  true,
	"build":         true,
	"dist":          true,
	".pytest_cache": true,
	".mypy_cache":   true,
	".ruff_cache":   true,
	".tox":          true,
	"htmlcov":       true,
}

// discoverFiles lists the files under root matching pattern, sorted for
// deterministic processing order. The pattern is doublestar syntax
// matched against the slash-separated path relative to root; in
// non-recursive mode only root's immediate children are considered.
func discoverFiles(root string, recursive bool, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if excludedDirs[d.Name()] || !recursive {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		// a bare basename pattern like "*.py" should still mean
		// "anywhere under root" in recursive mode
		if !ok && recursive {
			ok, err = doublestar.Match(pattern, d.Name())
			if err != nil {
				return err
			}
		}
		if ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}
