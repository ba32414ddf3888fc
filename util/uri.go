package util

import (
	"path/filepath"
	"strings"
)

func PathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "file://" + filepath.ToSlash(path)
	}
	return "file://" + filepath.ToSlash(abs)
}

func URIToPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		return filepath.FromSlash(uri[len("file://"):])
	}
	return uri
}
