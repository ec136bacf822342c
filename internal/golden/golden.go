// Package golden runs file-based formatter tests: every input file under a
// testdata directory is run through a function and the result is compared
// with a sibling expectation file.
package golden

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
)

// Corpus describes a directory of test cases.
type Corpus struct {
	// Root is the testdata directory, relative to the calling test file.
	Root string

	// Extensions lists the input file extensions (without a dot).
	Extensions []string

	// Output is the extension appended to an input file name to find its
	// expected output, e.g. "golden" for "case.html.golden".
	Output string

	// Refresh names an environment variable holding a doublestar glob. Cases
	// whose names match are rewritten instead of compared.
	Refresh string
}

// Case is one input file handed to the test function.
type Case struct {
	Name string // Path relative to Root
	Path string // Absolute path
	Text string // File contents
}

// Sidecar reads a file next to the case input with the given extension
// appended. A missing file yields an empty slice and no error.
func (c Case) Sidecar(ext string) ([]byte, error) {
	data, err := os.ReadFile(c.Path + "." + ext)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Run executes test for every case in the corpus.
func (c Corpus) Run(t *testing.T, test func(t *testing.T, tc Case) string) {
	t.Helper()

	root := filepath.Join(callerDir(), c.Root)
	cases, err := c.collect(root)
	if err != nil {
		t.Fatalf("golden: walking %q: %v", root, err)
	}
	if len(cases) == 0 {
		t.Fatalf("golden: no test cases found in %q", root)
	}

	var refresh string
	if c.Refresh != "" {
		refresh = os.Getenv(c.Refresh)
		if refresh != "" && !doublestar.ValidatePattern(refresh) {
			t.Fatalf("golden: invalid glob in %s: %q", c.Refresh, refresh)
		}
	}

	for _, path := range cases {
		name, _ := filepath.Rel(root, path)
		name = filepath.ToSlash(name)

		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("golden: reading input: %v", err)
			}

			got := test(t, Case{Name: name, Path: path, Text: string(data)})
			wantPath := path + "." + c.Output

			if match, _ := doublestar.Match(refresh, name); refresh != "" && match {
				if err := os.WriteFile(wantPath, []byte(got), 0644); err != nil {
					t.Fatalf("golden: writing %q: %v", wantPath, err)
				}
				t.Logf("golden: refreshed %s", wantPath)
				return
			}

			want, err := os.ReadFile(wantPath)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("golden: reading expected output: %v", err)
			}
			if diff := Diff(string(want), got); diff != "" {
				t.Errorf("output mismatch for %s:\n%s", wantPath, diff)
			}
		})
	}
}

// collect returns the sorted input files below root.
func (c Corpus) collect(root string) ([]string, error) {
	var cases []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(p), ".")
		if slices.Contains(c.Extensions, ext) {
			cases = append(cases, p)
		}
		return nil
	})
	slices.Sort(cases)
	return cases, err
}

// Diff returns a unified diff from want to got, or "" if they are equal.
func Diff(want, got string) string {
	if want == got {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return fmt.Sprintf("diff failed: %v", err)
	}
	return diff
}

func callerDir() string {
	// Skip callerDir and Corpus.Run.
	_, file, _, ok := runtime.Caller(2)
	if !ok {
		panic("golden: could not determine test file's directory")
	}
	return filepath.Dir(file)
}
