package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"linkgraph/internal/exclude"
)

var (
	ErrRootNotFound = errors.New("root directory does not exist")
	ErrRootNotDir   = errors.New("root is not a directory")
)

// Warning is a non-fatal traversal problem.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Options configures a scan. Policy is required.
type Options struct {
	Policy *exclude.Policy
	// Extensions lists document extensions, compared case-insensitively.
	// Defaults to ".md".
	Extensions []string
	Logger     *slog.Logger
}

// Result lists the documents found under Root, as root-relative slash paths
// in lexical order.
type Result struct {
	Root      string
	Documents []string
	Decisions []exclude.Decision
	Warnings  []Warning
}

// ResolveRoot makes root absolute, follows symlinks and checks that it is a
// directory.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", abs, ErrRootNotFound)
		}
		return "", fmt.Errorf("stat root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", abs, ErrRootNotDir)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve root symlinks %s: %w", abs, err)
	}
	return resolved, nil
}

// Scan walks root with an explicit stack. Excluded directories are pruned
// before they are read. Only configuration errors from the policy, an
// invalid root and cancellation are returned as errors.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	if opts.Policy == nil {
		return nil, errors.New("scanner: exclusion policy is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".md"}
	}

	res := &Result{Root: root}

	rootDecision, err := opts.Policy.Evaluate(".", true)
	if err != nil {
		return nil, err
	}
	if rootDecision.Excluded {
		logger.Info("scan root is excluded", "root", root, "pattern", rootDecision.Pattern)
		res.Decisions = append(res.Decisions, rootDecision)
		return res, nil
	}

	stack := []string{"."}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		abs := filepath.Join(root, filepath.FromSlash(dir))
		entries, err := os.ReadDir(abs)
		if err != nil {
			logger.Warn("skipping unreadable directory", "path", abs, "err", err)
			res.Warnings = append(res.Warnings, Warning{Path: dir, Message: err.Error()})
			continue
		}

		var subdirs []string
		for _, entry := range entries {
			rel := path.Join(dir, entry.Name())
			isDir, isFile := classify(abs, entry, logger)

			if isFile && !hasExtension(entry.Name(), exts) {
				continue
			}
			if !isDir && !isFile {
				continue
			}

			d, err := opts.Policy.Evaluate(rel, isDir)
			if err != nil {
				return nil, err
			}
			if d.Excluded {
				logger.Debug("excluded", "path", rel, "source", d.Source, "pattern", d.Pattern)
				res.Decisions = append(res.Decisions, d)
				continue
			}

			if isDir {
				subdirs = append(subdirs, rel)
				continue
			}
			res.Documents = append(res.Documents, rel)
			res.Decisions = append(res.Decisions, d)
		}

		// Reverse push keeps the walk itself in lexical order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	for _, err := range opts.Policy.Warnings() {
		res.Warnings = append(res.Warnings, Warning{Message: err.Error()})
	}

	sort.Strings(res.Documents)
	sort.SliceStable(res.Decisions, func(i, j int) bool { return res.Decisions[i].Path < res.Decisions[j].Path })
	return res, nil
}

// classify reports whether entry is a directory to descend into or a regular
// file. Symlinked files count as files; symlinked directories are not followed.
func classify(dir string, entry fs.DirEntry, logger *slog.Logger) (isDir, isFile bool) {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		return true, false
	case mode.IsRegular():
		return false, true
	case mode&fs.ModeSymlink != 0:
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Debug("dangling symlink", "path", filepath.Join(dir, entry.Name()), "err", err)
			return false, false
		}
		if info.IsDir() {
			logger.Debug("not following directory symlink", "path", filepath.Join(dir, entry.Name()))
			return false, false
		}
		return false, info.Mode().IsRegular()
	default:
		return false, false
	}
}

func hasExtension(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
