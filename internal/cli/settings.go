package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/grantcarthew/tagfmt/internal/config"
	"github.com/grantcarthew/tagfmt/internal/tagfmt"
)

// formatterFlags are the flags shared by commands that run the formatter.
type formatterFlags struct {
	indent           int
	tabs             bool
	maxLineLength    int
	wrapAttributes   string
	sortAttributes   bool
	sortLocale       string
	preserveNewlines bool
	maxNewlines      int
	rawTextExit      string
	leafTags         bool
}

// register adds the formatter flags to fs. Defaults mirror
// tagfmt.DefaultConfig; only flags the user sets are applied.
func (f *formatterFlags) register(fs *pflag.FlagSet) {
	d := tagfmt.DefaultConfig()
	fs.IntVar(&f.indent, "indent", d.IndentWidth(), "Spaces per indentation level")
	fs.BoolVar(&f.tabs, "tabs", false, "Indent with tabs")
	fs.IntVar(&f.maxLineLength, "max-line-length", d.MaxLineLength, "Wrap text lines longer than this many characters")
	fs.StringVar(&f.wrapAttributes, "wrap-attributes", string(d.WrapMode), "Attribute wrapping: auto, force or none")
	fs.BoolVar(&f.sortAttributes, "sort-attributes", d.SortAttributes, "Sort wrapped attributes")
	fs.StringVar(&f.sortLocale, "sort-locale", d.SortLocale, "BCP 47 locale for attribute sorting (default: byte order)")
	fs.BoolVar(&f.preserveNewlines, "preserve-newlines", d.PreserveNewlines, "Keep line breaks from the input")
	fs.IntVar(&f.maxNewlines, "max-newlines", d.MaxConsecutiveNewlines, "Consecutive input newlines that still break a line")
	fs.StringVar(&f.rawTextExit, "raw-text-exit", string(d.RawTextExit), "How script/style content ends: closing-tag or slash-gt")
	fs.BoolVar(&f.leafTags, "leaf-tags", d.LeafTags, "Do not indent after declarations and self-closed tags")
}

// overrides returns the flags the user set explicitly.
func (f *formatterFlags) overrides(fs *pflag.FlagSet) config.Overrides {
	var o config.Overrides
	if fs.Changed("indent") {
		o.Indent = &f.indent
	}
	if fs.Changed("tabs") {
		o.Tabs = &f.tabs
	}
	if fs.Changed("max-line-length") {
		o.MaxLineLength = &f.maxLineLength
	}
	if fs.Changed("wrap-attributes") {
		o.WrapAttributes = &f.wrapAttributes
	}
	if fs.Changed("sort-attributes") {
		o.SortAttributes = &f.sortAttributes
	}
	if fs.Changed("sort-locale") {
		o.SortLocale = &f.sortLocale
	}
	if fs.Changed("preserve-newlines") {
		o.PreserveNewlines = &f.preserveNewlines
	}
	if fs.Changed("max-newlines") {
		o.MaxNewlines = &f.maxNewlines
	}
	if fs.Changed("raw-text-exit") {
		o.RawTextExit = &f.rawTextExit
	}
	if fs.Changed("leaf-tags") {
		o.LeafTags = &f.leafTags
	}
	return o
}

// settings is the resolved configuration for one command run.
type settings struct {
	Formatter tagfmt.Config
	Include   []string
	Exclude   []string
}

// resolveSettings layers the config file and then the changed flags over
// the defaults. ff may be nil for commands without formatter flags.
func resolveSettings(fs *pflag.FlagSet, ff *formatterFlags) (settings, error) {
	wd, err := os.Getwd()
	if err != nil {
		return settings{}, err
	}

	file, path, err := config.Resolve(ConfigPath, wd)
	if err != nil {
		return settings{}, err
	}
	if path != "" {
		debugf("config file: %s", path)
	} else {
		debugf("no config file found from %s", wd)
	}

	cfg, err := file.Apply(tagfmt.DefaultConfig())
	if err != nil {
		return settings{}, withPath(path, err)
	}
	if ff != nil {
		if cfg, err = ff.overrides(fs).Apply(cfg); err != nil {
			return settings{}, err
		}
	}
	debugf("config: %+v", cfg)

	return settings{Formatter: cfg, Include: file.Include, Exclude: file.Exclude}, nil
}

func withPath(path string, err error) error {
	if path == "" {
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}
