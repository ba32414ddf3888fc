package exclude

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func newPolicy(t *testing.T, root string, cfg Config) *Policy {
	t.Helper()
	p, err := New(root, cfg, nil)
	require.NoError(t, err)
	return p
}

func TestDefaults(t *testing.T) {
	root := t.TempDir()
	p := newPolicy(t, root, Config{UseDefaults: true})

	d, err := p.Evaluate("node_modules", true)
	require.NoError(t, err)
	assert.True(t, d.Excluded)
	assert.Equal(t, SourceDefault, d.Source)
	assert.Equal(t, "node_modules", d.Pattern)

	d, err = p.Evaluate("docs/archive/old.md", false)
	require.NoError(t, err)
	assert.True(t, d.Excluded)
	assert.Equal(t, "archive", d.Pattern)
	assert.Equal(t, "docs/archive/old.md", d.Path)

	excluded, err := p.IsExcluded("docs/guide.md", false)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestDefaultsDisabled(t *testing.T) {
	p := newPolicy(t, t.TempDir(), Config{})

	excluded, err := p.IsExcluded("vendor/lib/readme.md", false)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestDefaultNamesOverride(t *testing.T) {
	p := newPolicy(t, t.TempDir(), Config{UseDefaults: true, DefaultNames: []string{"generated"}})

	excluded, err := p.IsExcluded("generated/a.md", false)
	require.NoError(t, err)
	assert.True(t, excluded)

	excluded, err = p.IsExcluded("node_modules/a.md", false)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestRootIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "# comment\n\ndrafts/\n*.tmp.md\n")
	p := newPolicy(t, root, Config{RespectIgnoreFiles: true})

	d, err := p.Evaluate("drafts", true)
	require.NoError(t, err)
	assert.True(t, d.Excluded)
	assert.Equal(t, SourceIgnoreFile, d.Source)
	assert.Equal(t, "drafts/", d.Pattern)
	assert.Equal(t, filepath.Join(root, ".gitignore"), d.Origin)

	excluded, err := p.IsExcluded("notes/scratch.tmp.md", false)
	require.NoError(t, err)
	assert.True(t, excluded)

	// Directory-only pattern does not match a file of the same name.
	excluded, err = p.IsExcluded("drafts.md", false)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestNestedIgnoreFileIsScoped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sub/.gitignore", "secret.md\n")
	p := newPolicy(t, root, Config{RespectIgnoreFiles: true})

	excluded, err := p.IsExcluded("sub/secret.md", false)
	require.NoError(t, err)
	assert.True(t, excluded)

	excluded, err = p.IsExcluded("secret.md", false)
	require.NoError(t, err)
	assert.False(t, excluded)

	excluded, err = p.IsExcluded("other/secret.md", false)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestNegationLastMatchWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.md\n!keep.md\n")
	p := newPolicy(t, root, Config{RespectIgnoreFiles: true})

	excluded, err := p.IsExcluded("a.md", false)
	require.NoError(t, err)
	assert.True(t, excluded)

	d, err := p.Evaluate("keep.md", false)
	require.NoError(t, err)
	assert.False(t, d.Excluded)
	assert.Equal(t, SourceIgnoreFile, d.Source)
	assert.Equal(t, "!keep.md", d.Pattern)
}

func TestNestedNegationCannotEscapeExcludedDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "private/\n")
	writeFile(t, root, "private/.gitignore", "!keep.md\n")
	p := newPolicy(t, root, Config{RespectIgnoreFiles: true})

	d, err := p.Evaluate("private/keep.md", false)
	require.NoError(t, err)
	assert.True(t, d.Excluded)
	assert.Equal(t, "private/", d.Pattern)
}

func TestUserPatternsOverrideLowerLayers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "notes/\n")
	p := newPolicy(t, root, Config{
		UseDefaults:        true,
		RespectIgnoreFiles: true,
		ExtraPatterns:      []string{"!notes/", "*.draft.md", "!build/"},
	})

	d, err := p.Evaluate("notes", true)
	require.NoError(t, err)
	assert.False(t, d.Excluded)
	assert.Equal(t, SourceUser, d.Source)

	d, err = p.Evaluate("build", true)
	require.NoError(t, err)
	assert.False(t, d.Excluded, "user re-include beats a default")

	d, err = p.Evaluate("ideas.draft.md", false)
	require.NoError(t, err)
	assert.True(t, d.Excluded)
	assert.Equal(t, SourceUser, d.Source)
}

func TestIgnoreFilesDisabled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.md\n")
	p := newPolicy(t, root, Config{RespectIgnoreFiles: false})

	excluded, err := p.IsExcluded("a.md", false)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestCustomIgnoreFileNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".mdignore", "wip.md\n")
	writeFile(t, root, ".gitignore", "other.md\n")
	p := newPolicy(t, root, Config{RespectIgnoreFiles: true, IgnoreFileNames: []string{".mdignore"}})

	excluded, err := p.IsExcluded("wip.md", false)
	require.NoError(t, err)
	assert.True(t, excluded)

	excluded, err = p.IsExcluded("other.md", false)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestInvalidUserPattern(t *testing.T) {
	_, err := New(t.TempDir(), Config{ExtraPatterns: []string{"[abc"}}, nil)
	require.Error(t, err)

	var perr *PatternError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "[abc", perr.Pattern)
	assert.Equal(t, SourceUser, perr.Source)
	assert.Contains(t, err.Error(), `invalid user pattern "[abc"`)
}

func TestInvalidIgnoreFilePattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "ok.md\n[bad\n")
	p := newPolicy(t, root, Config{RespectIgnoreFiles: true})

	_, err := p.Evaluate("a.md", false)
	var perr *PatternError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, SourceIgnoreFile, perr.Source)
	assert.Equal(t, filepath.Join(root, ".gitignore"), perr.Origin)
}

func TestRootMatchedByDefault(t *testing.T) {
	root := filepath.Join(t.TempDir(), "node_modules")
	require.NoError(t, os.Mkdir(root, 0o755))
	p := newPolicy(t, root, Config{UseDefaults: true})

	d, err := p.Evaluate(".", true)
	require.NoError(t, err)
	assert.True(t, d.Excluded)
	assert.Equal(t, ".", d.Path)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "ignore-file", SourceIgnoreFile.String())
	text, err := SourceUser.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "user", string(text))
}
