package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// DefaultRenderTimeout bounds a single Graphviz invocation.
const DefaultRenderTimeout = 30 * time.Second

// ErrGraphvizNotFound is returned when no dot binary can be located.
var ErrGraphvizNotFound = errors.New("graphviz dot binary not found")

// Graphviz renders DOT text to images with an external dot process.
type Graphviz struct {
	binary  string
	timeout time.Duration
}

// NewGraphviz locates the dot binary. Priority:
// 1. customPath (if provided and exists)
// 2. System PATH
func NewGraphviz(customPath string, timeout time.Duration) (*Graphviz, error) {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}

	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return &Graphviz{binary: customPath, timeout: timeout}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrGraphvizNotFound, customPath)
	}

	binary, err := findInPath("dot")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphvizNotFound, err)
	}
	return &Graphviz{binary: binary, timeout: timeout}, nil
}

// Binary returns the resolved dot executable.
func (g *Graphviz) Binary() string {
	return g.binary
}

// Render writes dot rendered as format (svg, png, pdf...) to outPath.
func (g *Graphviz) Render(ctx context.Context, dot, format, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.binary, "-T"+format, "-o", outPath)
	cmd.Stdin = strings.NewReader(dot)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("graphviz timed out after %v", g.timeout)
		}
		return fmt.Errorf("graphviz failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// findInPath searches for a binary in the system PATH.
func findInPath(binaryName string) (string, error) {
	// Add .exe extension on Windows
	if runtime.GOOS == "windows" && !strings.HasSuffix(binaryName, ".exe") {
		binaryName += ".exe"
	}

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		fullPath := filepath.Join(dir, binaryName)
		if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
			// Check if executable on Unix-like systems
			if runtime.GOOS != "windows" && info.Mode()&0111 == 0 {
				continue
			}
			return fullPath, nil
		}
	}

	return "", fmt.Errorf("%s not found in PATH", binaryName)
}
