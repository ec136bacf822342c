// Package files expands command-line path arguments into the list of files
// to format.
package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude selects markup files when walking a directory.
var DefaultInclude = []string{"**/*.{html,htm,xml,svg,vue}"}

// skipDirs are never descended into when walking a directory.
var skipDirs = []string{"node_modules", "vendor", "__pycache__"}

// Options controls which files are collected.
type Options struct {
	Include []string // Globs applied inside directories (default DefaultInclude)
	Exclude []string // Globs removing files from every source
}

// Collect expands paths into a sorted, de-duplicated list of files.
//
// A path naming a file is used as-is. A directory is walked and filtered by
// Include. Anything else is treated as a doublestar glob, which must match at
// least one file. Exclude applies to all three.
func Collect(paths []string, opts Options) ([]string, error) {
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, pattern := range slices.Concat(include, opts.Exclude) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern: %q", pattern)
		}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(path string) {
		path = filepath.Clean(path)
		if seen[path] || excluded(path, opts.Exclude) {
			return
		}
		seen[path] = true
		out = append(out, path)
	}

	for _, arg := range paths {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			found, err := walk(arg, include, opts.Exclude)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}

		case err == nil:
			add(arg)

		case isGlob(arg):
			found, err := glob(arg)
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				return nil, fmt.Errorf("no files match %q", arg)
			}
			for _, f := range found {
				add(f)
			}

		default:
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
	}

	slices.Sort(out)
	return out, nil
}

// Match reports whether path (relative to a watched root) is selected by
// include and not removed by exclude. An empty include selects
// DefaultInclude.
func Match(path string, include, exclude []string) bool {
	if len(include) == 0 {
		include = DefaultInclude
	}
	path = filepath.ToSlash(path)
	if excluded(path, exclude) {
		return false
	}
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// walk returns the files below dir selected by include.
func walk(dir string, include, exclude []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if Match(rel, include, exclude) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return out, nil
}

// glob expands a doublestar pattern relative to its static prefix.
func glob(pattern string) ([]string, error) {
	base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
	matches, err := doublestar.Glob(os.DirFS(base), rest, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(base, filepath.FromSlash(m))
	}
	return out, nil
}

// SkipDir reports whether a directory with the given base name is never
// walked or watched.
func SkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || slices.Contains(skipDirs, name)
}

func excluded(path string, exclude []string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
