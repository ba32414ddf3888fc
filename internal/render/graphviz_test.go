package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphvizCustomPathMissing(t *testing.T) {
	_, err := NewGraphviz(filepath.Join(t.TempDir(), "no-dot"), 0)
	assert.ErrorIs(t, err, ErrGraphvizNotFound)
}

func TestNewGraphvizNotOnPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := NewGraphviz("", time.Second)
	assert.ErrorIs(t, err, ErrGraphvizNotFound)
}

func TestGraphvizRenderWithFakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "dot")
	// Copies stdin to the file after -o.
	script := "#!/bin/sh\nwhile [ $# -gt 0 ]; do if [ \"$1\" = \"-o\" ]; then out=$2; fi; shift; done\ncat > \"$out\"\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	gv, err := NewGraphviz("", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, bin, gv.Binary())

	out := filepath.Join(dir, "graph.svg")
	require.NoError(t, gv.Render(context.Background(), "digraph {}\n", "svg", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "digraph {}\n", string(data))
}

func TestGraphvizRenderFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	bin := filepath.Join(t.TempDir(), "dot")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'syntax error' >&2\nexit 1\n"), 0o755))

	gv, err := NewGraphviz(bin, time.Second)
	require.NoError(t, err)

	err = gv.Render(context.Background(), "nonsense", "svg", filepath.Join(t.TempDir(), "x.svg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}
