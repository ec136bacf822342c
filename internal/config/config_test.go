package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantcarthew/tagfmt/internal/tagfmt"
)

func ptr[T any](v T) *T { return &v }

func TestParse(t *testing.T) {
	data := []byte(`
indent: 4
max_line_length: 120
wrap_attributes: none
sort_attributes: true
sort_locale: en
preserve_newlines: false
max_newlines: 1
raw_text_exit: slash-gt
leaf_tags: true
include:
  - "**/*.html"
exclude:
  - "dist/**"
`)
	f, err := Parse(data)
	require.NoError(t, err)

	require.NotNil(t, f.Indent)
	assert.Equal(t, 4, *f.Indent)
	assert.Nil(t, f.Tabs)
	assert.Equal(t, 120, *f.MaxLineLength)
	assert.Equal(t, "none", *f.WrapAttributes)
	assert.True(t, *f.SortAttributes)
	assert.Equal(t, "en", *f.SortLocale)
	assert.False(t, *f.PreserveNewlines)
	assert.Equal(t, 1, *f.MaxNewlines)
	assert.Equal(t, "slash-gt", *f.RawTextExit)
	assert.True(t, *f.LeafTags)
	assert.Equal(t, []string{"**/*.html"}, f.Include)
	assert.Equal(t, []string{"dist/**"}, f.Exclude)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, File{}, f)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("indnet: 2\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, tagfmt.ErrInvalidConfig)
}

func TestOverridesApply(t *testing.T) {
	tests := []struct {
		name    string
		o       Overrides
		check   func(t *testing.T, cfg tagfmt.Config)
		wantErr bool
	}{
		{
			name: "empty overrides keep defaults",
			o:    Overrides{},
			check: func(t *testing.T, cfg tagfmt.Config) {
				assert.Equal(t, tagfmt.DefaultConfig(), cfg)
			},
		},
		{
			name: "indent width",
			o:    Overrides{Indent: ptr(4)},
			check: func(t *testing.T, cfg tagfmt.Config) {
				assert.Equal(t, "    ", cfg.IndentUnit)
			},
		},
		{
			name: "tabs win over indent",
			o:    Overrides{Indent: ptr(4), Tabs: ptr(true)},
			check: func(t *testing.T, cfg tagfmt.Config) {
				assert.Equal(t, tagfmt.IndentTab, cfg.IndentUnit)
			},
		},
		{
			name: "tabs false keeps spaces",
			o:    Overrides{Tabs: ptr(false)},
			check: func(t *testing.T, cfg tagfmt.Config) {
				assert.Equal(t, "  ", cfg.IndentUnit)
			},
		},
		{
			name: "all formatter fields",
			o: Overrides{
				MaxLineLength:    ptr(40),
				WrapAttributes:   ptr("FORCE"),
				SortAttributes:   ptr(true),
				SortLocale:       ptr("sv"),
				PreserveNewlines: ptr(false),
				MaxNewlines:      ptr(0),
				RawTextExit:      ptr("slash-gt"),
				LeafTags:         ptr(true),
			},
			check: func(t *testing.T, cfg tagfmt.Config) {
				assert.Equal(t, 40, cfg.MaxLineLength)
				assert.Equal(t, tagfmt.WrapForce, cfg.WrapMode)
				assert.True(t, cfg.SortAttributes)
				assert.Equal(t, "sv", cfg.SortLocale)
				assert.False(t, cfg.PreserveNewlines)
				assert.Equal(t, 0, cfg.MaxConsecutiveNewlines)
				assert.Equal(t, tagfmt.RawTextSlashGT, cfg.RawTextExit)
				assert.True(t, cfg.LeafTags)
			},
		},
		{name: "negative indent", o: Overrides{Indent: ptr(-1)}, wantErr: true},
		{name: "huge indent", o: Overrides{Indent: ptr(64)}, wantErr: true},
		{name: "bad wrap mode", o: Overrides{WrapAttributes: ptr("maybe")}, wantErr: true},
		{name: "bad raw text exit", o: Overrides{RawTextExit: ptr("never")}, wantErr: true},
		{name: "zero line length", o: Overrides{MaxLineLength: ptr(0)}, wantErr: true},
		{name: "negative newlines", o: Overrides{MaxNewlines: ptr(-3)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.o.Apply(tagfmt.DefaultConfig())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tagfmt.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	path, err := Find(nested)
	require.NoError(t, err)
	assert.Empty(t, path)

	cfgPath := filepath.Join(root, "a", ".tagfmt.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("indent: 3\n"), 0644))

	path, err = Find(nested)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, path)

	// .tagfmt.yaml takes precedence in the same directory.
	preferred := filepath.Join(root, "a", ".tagfmt.yaml")
	require.NoError(t, os.WriteFile(preferred, []byte("indent: 5\n"), 0644))

	path, err = Find(nested)
	require.NoError(t, err)
	assert.Equal(t, preferred, path)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()

	f, path, err := Resolve("", dir)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, File{}, f)

	explicit := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("tabs: true\n"), 0644))

	f, path, err = Resolve(explicit, dir)
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
	require.NotNil(t, f.Tabs)
	assert.True(t, *f.Tabs)

	_, _, err = Resolve(filepath.Join(dir, "missing.yaml"), dir)
	assert.Error(t, err)
}
