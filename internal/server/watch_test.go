package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRescansOnNewDocument(t *testing.T) {
	s, root := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Index(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 20*time.Millisecond) }()

	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "new.md"), []byte("[home](../index.md)\n"), 0o644))

	assert.Eventually(t, func() bool {
		res, err := s.current(ctx)
		return err == nil && len(res.Documents) == 4
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRelevant(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/r/a.md", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/r/A.MD", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/r/.gitignore", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/r/a.png", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/r/a.md", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/r/olddir", Op: fsnotify.Remove}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.relevant(tt.ev), tt.ev.String())
	}
}
