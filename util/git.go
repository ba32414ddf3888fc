package util

import (
	"os"
	"path/filepath"
)

// FindGitRoot walks up from start looking for a .git entry. An empty start
// means the current directory. Returns start itself if .git is not found.
func FindGitRoot(start string) (string, error) {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = cwd
	}
	start, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return start, nil
		}
		dir = parent
	}
}
