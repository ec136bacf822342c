// Package config loads formatter settings from .tagfmt.yaml files and
// layers them over the defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/grantcarthew/tagfmt/internal/tagfmt"
)

// FileNames are the config file names searched for, in order.
var FileNames = []string{".tagfmt.yaml", ".tagfmt.yml"}

// maxIndent bounds the indent width accepted from users.
const maxIndent = 16

// Overrides holds optional formatter settings. Nil fields leave the
// underlying value unchanged. The same shape is used by config files and by
// the HTTP API.
type Overrides struct {
	Indent           *int    `yaml:"indent" json:"indent,omitempty"`
	Tabs             *bool   `yaml:"tabs" json:"tabs,omitempty"`
	MaxLineLength    *int    `yaml:"max_line_length" json:"max_line_length,omitempty"`
	WrapAttributes   *string `yaml:"wrap_attributes" json:"wrap_attributes,omitempty"`
	SortAttributes   *bool   `yaml:"sort_attributes" json:"sort_attributes,omitempty"`
	SortLocale       *string `yaml:"sort_locale" json:"sort_locale,omitempty"`
	PreserveNewlines *bool   `yaml:"preserve_newlines" json:"preserve_newlines,omitempty"`
	MaxNewlines      *int    `yaml:"max_newlines" json:"max_newlines,omitempty"`
	RawTextExit      *string `yaml:"raw_text_exit" json:"raw_text_exit,omitempty"`
	LeafTags         *bool   `yaml:"leaf_tags" json:"leaf_tags,omitempty"`
}

// File is the contents of a .tagfmt.yaml file.
type File struct {
	Overrides `yaml:",inline"`

	Include []string `yaml:"include"` // Doublestar globs selecting files in directories
	Exclude []string `yaml:"exclude"` // Doublestar globs removing files
}

// Apply layers o over cfg and validates the result.
func (o Overrides) Apply(cfg tagfmt.Config) (tagfmt.Config, error) {
	if o.Indent != nil {
		if *o.Indent < 0 || *o.Indent > maxIndent {
			return cfg, fmt.Errorf("%w: indent must be between 0 and %d, got %d", tagfmt.ErrInvalidConfig, maxIndent, *o.Indent)
		}
		cfg.IndentUnit = tagfmt.IndentSpaces(*o.Indent)
	}
	if o.Tabs != nil && *o.Tabs {
		cfg.IndentUnit = tagfmt.IndentTab
	}
	if o.MaxLineLength != nil {
		cfg.MaxLineLength = *o.MaxLineLength
	}
	if o.WrapAttributes != nil {
		mode, err := tagfmt.ParseWrapMode(*o.WrapAttributes)
		if err != nil {
			return cfg, err
		}
		cfg.WrapMode = mode
	}
	if o.SortAttributes != nil {
		cfg.SortAttributes = *o.SortAttributes
	}
	if o.SortLocale != nil {
		cfg.SortLocale = *o.SortLocale
	}
	if o.PreserveNewlines != nil {
		cfg.PreserveNewlines = *o.PreserveNewlines
	}
	if o.MaxNewlines != nil {
		cfg.MaxConsecutiveNewlines = *o.MaxNewlines
	}
	if o.RawTextExit != nil {
		exit, err := tagfmt.ParseRawTextExit(*o.RawTextExit)
		if err != nil {
			return cfg, err
		}
		cfg.RawTextExit = exit
	}
	if o.LeafTags != nil {
		cfg.LeafTags = *o.LeafTags
	}
	return cfg, cfg.Validate()
}

// Parse decodes a config file. Unknown keys are rejected. Empty input gives
// an empty File.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("%w: %v", tagfmt.ErrInvalidConfig, err)
	}
	return f, nil
}

// Load reads and parses the config file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Find searches dir and its parents for a config file. It returns "" when
// none exists.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			info, err := os.Stat(path)
			if err == nil && !info.IsDir() {
				return path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Resolve loads the config file for a run. An explicit path must exist;
// otherwise the nearest config file above dir is used, if any. The returned
// path is "" when no file was loaded.
func Resolve(explicit, dir string) (File, string, error) {
	path := explicit
	if path == "" {
		var err error
		path, err = Find(dir)
		if err != nil || path == "" {
			return File{}, "", err
		}
	}
	f, err := Load(path)
	if err != nil {
		return File{}, "", err
	}
	return f, path, nil
}
