package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"linkgraph/internal/exclude"
)

// DefaultWatchDebounce is how long the watcher waits for changes to settle.
const DefaultWatchDebounce = 500 * time.Millisecond

// EnableWatch makes Run rescan whenever documents or ignore files change.
func (s *Server) EnableWatch(debounce time.Duration) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	s.watchDebounce = debounce
}

// Watch blocks until ctx is done, rescanning the root after each burst of
// relevant filesystem events.
func (s *Server) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	policy, err := s.watchPolicy()
	if err != nil {
		return err
	}
	if err := s.addWatches(w, policy, s.opts.Root); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := s.addWatches(w, policy, ev.Name); err != nil {
						s.logger.Warn("failed to watch new directory", "path", ev.Name, "err", err)
					}
				}
			}
			if !s.relevant(ev) {
				continue
			}
			s.logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "err", err)

		case <-fire:
			fire = nil
			if _, err := s.Index(ctx); err != nil {
				if errors.Is(err, ErrIndexInProgress) {
					// Try again once the running scan is done.
					timer.Reset(debounce)
					fire = timer.C
					continue
				}
				s.logger.Error("rescan failed", "err", err)
			}
			// Ignore-file edits may have changed which directories are pruned.
			if p, err := s.watchPolicy(); err == nil {
				policy = p
			}
		}
	}
}

func (s *Server) watchPolicy() (*exclude.Policy, error) {
	return exclude.New(s.opts.Root, exclude.Config{
		UseDefaults:        s.opts.UseDefaultExcludes,
		RespectIgnoreFiles: s.opts.RespectIgnoreFiles,
		IgnoreFileNames:    s.opts.IgnoreFileNames,
		ExtraPatterns:      s.opts.ExtraPatterns,
	}, s.logger)
}

// addWatches watches dir and every directory below it that a scan would
// descend into.
func (s *Server) addWatches(w *fsnotify.Watcher, policy *exclude.Policy, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Debug("skipping unwatchable path", "path", p, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.opts.Root, p)
		if err != nil {
			return err
		}
		excluded, err := policy.IsExcluded(filepath.ToSlash(rel), true)
		if err != nil {
			return err
		}
		if excluded {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func (s *Server) relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(ev.Name)

	ignoreFiles := s.opts.IgnoreFileNames
	if ignoreFiles == nil {
		ignoreFiles = exclude.DefaultIgnoreFileNames()
	}
	for _, f := range ignoreFiles {
		if name == f {
			return true
		}
	}

	exts := s.opts.Extensions
	if len(exts) == 0 {
		exts = []string{".md"}
	}
	for _, e := range exts {
		if strings.EqualFold(filepath.Ext(name), e) {
			return true
		}
	}
	// A removed or renamed directory takes its documents with it.
	return ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
