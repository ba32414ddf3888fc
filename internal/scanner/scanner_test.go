package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkgraph/internal/exclude"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func scan(t *testing.T, root string, cfg exclude.Config, exts ...string) *Result {
	t.Helper()
	policy, err := exclude.New(root, cfg, nil)
	require.NoError(t, err)
	res, err := Scan(context.Background(), root, Options{Policy: policy, Extensions: exts})
	require.NoError(t, err)
	return res
}

func TestScanFindsDocumentsInOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "")
	writeFile(t, root, "docs/guide.md", "")
	writeFile(t, root, "docs/api.MD", "")
	writeFile(t, root, "docs/diagram.png", "")
	writeFile(t, root, "b/z.md", "")
	writeFile(t, root, "a.md", "")

	res := scan(t, root, exclude.Config{UseDefaults: true})

	assert.Equal(t, []string{"README.md", "a.md", "b/z.md", "docs/api.MD", "docs/guide.md"}, res.Documents)
	assert.Empty(t, res.Warnings)
}

func TestScanPrunesExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md", "")
	writeFile(t, root, "node_modules/pkg/readme.md", "")
	writeFile(t, root, "archive/old.md", "")
	writeFile(t, root, "drafts/wip.md", "")
	writeFile(t, root, ".gitignore", "drafts/\n")

	res := scan(t, root, exclude.Config{UseDefaults: true, RespectIgnoreFiles: true})

	assert.Equal(t, []string{"index.md"}, res.Documents)

	var skipped []string
	for _, d := range res.Decisions {
		if d.Excluded {
			skipped = append(skipped, d.Path)
		}
	}
	assert.Equal(t, []string{"archive", "drafts", "node_modules"}, skipped)
}

func TestScanCustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "")
	writeFile(t, root, "b.markdown", "")

	res := scan(t, root, exclude.Config{}, ".markdown")
	assert.Equal(t, []string{"b.markdown"}, res.Documents)
}

func TestScanExcludedRootIsEmpty(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vendor")
	writeFile(t, root, "a.md", "")

	res := scan(t, root, exclude.Config{UseDefaults: true})

	assert.Empty(t, res.Documents)
	require.Len(t, res.Decisions, 1)
	assert.True(t, res.Decisions[0].Excluded)
}

func TestScanDoesNotFollowDirectorySymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, root, "a.md", "")
	writeFile(t, outside, "b.md", "")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "b.md"), filepath.Join(root, "alias.md")))

	res := scan(t, root, exclude.Config{})
	assert.Equal(t, []string{"a.md", "alias.md"}, res.Documents)
}

func TestScanUnreadableDirectoryIsAWarning(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeFile(t, root, "a.md", "")
	writeFile(t, root, "locked/b.md", "")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	res := scan(t, root, exclude.Config{})

	assert.Equal(t, []string{"a.md"}, res.Documents)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "locked", res.Warnings[0].Path)
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "")
	policy, err := exclude.New(root, exclude.Config{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Scan(ctx, root, Options{Policy: policy})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanRequiresPolicy(t *testing.T) {
	_, err := Scan(context.Background(), t.TempDir(), Options{})
	assert.Error(t, err)
}

func TestResolveRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.md", "")

	_, err := ResolveRoot(filepath.Join(dir, "nope"))
	assert.True(t, errors.Is(err, ErrRootNotFound))

	_, err = ResolveRoot(filepath.Join(dir, "file.md"))
	assert.True(t, errors.Is(err, ErrRootNotDir))

	got, err := ResolveRoot(dir)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
