// Package server exposes a link graph over the Model Context Protocol on stdio.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"linkgraph/internal/engine"
	"linkgraph/internal/render"
)

//go:embed guidelines.md
var usageGuidelines string

type IndexStatus string

const (
	IndexStatusIdle       IndexStatus = "idle"
	IndexStatusInProgress IndexStatus = "in_progress"
	IndexStatusReady      IndexStatus = "ready"
	IndexStatusFailed     IndexStatus = "failed"
)

// ErrIndexInProgress is returned when a scan is requested while one runs.
var ErrIndexInProgress = errors.New("scan already in progress")

type Server struct {
	mcpServer    *mcp.Server
	opts         engine.Options
	renderOpts   render.Options
	logger       *slog.Logger
	systemPrompt string

	// watchDebounce > 0 enables the filesystem watcher in Run.
	watchDebounce time.Duration

	indexMu       sync.RWMutex
	indexStatus   IndexStatus
	indexErr      error
	indexStart    time.Time
	indexDuration time.Duration
	indexReady    chan struct{}
	result        *engine.Result
}

// NewServer creates a server for opts.Root. Nothing is scanned until Run or
// Index is called.
func NewServer(opts engine.Options, renderOpts render.Options, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger
	// External nodes are always kept; get_graph filters them on output.
	opts.IncludeExternal = true

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    "linkgraph",
			Version: version,
		}, nil),
		opts:         opts,
		renderOpts:   renderOpts,
		logger:       logger,
		systemPrompt: usageGuidelines,
		indexStatus:  IndexStatusIdle,
		indexReady:   make(chan struct{}),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Run starts the initial scan in the background and serves on stdio until
// ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if err := s.beginIndex(); err == nil {
		go func() {
			if _, err := s.runIndex(ctx); err != nil {
				s.logger.Error("initial scan failed", "root", s.opts.Root, "err", err)
			}
		}()
	}
	if s.watchDebounce > 0 {
		go func() {
			if err := s.Watch(ctx, s.watchDebounce); err != nil {
				s.logger.Error("watcher stopped", "err", err)
			}
		}()
	}
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Index runs a full scan and publishes the result. Readers keep seeing the
// previous result until the new one is complete.
func (s *Server) Index(ctx context.Context) (*engine.Result, error) {
	if err := s.beginIndex(); err != nil {
		return nil, err
	}
	return s.runIndex(ctx)
}

func (s *Server) beginIndex() error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if s.indexStatus == IndexStatusInProgress {
		return ErrIndexInProgress
	}
	// Reset indexReady channel if this is a re-index
	if s.indexStatus == IndexStatusReady || s.indexStatus == IndexStatusFailed {
		s.indexReady = make(chan struct{})
	}
	s.indexStatus = IndexStatusInProgress
	s.indexErr = nil
	s.indexStart = time.Now()
	return nil
}

func (s *Server) runIndex(ctx context.Context) (*engine.Result, error) {
	res, err := engine.Scan(ctx, s.opts)
	if err != nil {
		s.finishIndex(nil, err)
		return nil, err
	}
	s.finishIndex(res, nil)
	s.logger.Info("scan complete",
		"root", res.Root,
		"documents", res.Stats.Documents,
		"links", res.Stats.InternalLinks,
		"broken", res.Stats.BrokenLinks)
	return res, nil
}

func (s *Server) finishIndex(res *engine.Result, err error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	s.indexDuration = time.Since(s.indexStart)
	if err != nil {
		s.indexStatus = IndexStatusFailed
		s.indexErr = err
	} else {
		s.indexStatus = IndexStatusReady
		s.result = res
	}
	close(s.indexReady)
}

// WaitForIndex blocks until the current scan finishes or ctx is done.
func (s *Server) WaitForIndex(ctx context.Context) error {
	s.indexMu.RLock()
	ready := s.indexReady
	status := s.indexStatus
	s.indexMu.RUnlock()

	if status == IndexStatusReady {
		return nil
	}
	if status == IndexStatusIdle {
		return errors.New("no scan has been started")
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetIndexStatus returns the scan status, its error if it failed, and the
// duration of the last completed scan.
func (s *Server) GetIndexStatus() (IndexStatus, error, time.Duration) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	return s.indexStatus, s.indexErr, s.indexDuration
}

// current waits briefly for an in-flight scan and returns the latest result.
func (s *Server) current(ctx context.Context) (*engine.Result, error) {
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.WaitForIndex(waitCtx); err != nil {
		status, indexErr, _ := s.GetIndexStatus()
		if indexErr != nil {
			return nil, fmt.Errorf("scan failed: %w", indexErr)
		}
		if status == IndexStatusInProgress {
			return nil, errors.New("scan in progress, please try again")
		}
		return nil, fmt.Errorf("scan wait failed: %w", err)
	}

	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	if s.result == nil {
		if s.indexErr != nil {
			return nil, fmt.Errorf("scan failed: %w", s.indexErr)
		}
		return nil, errors.New("no scan result available")
	}
	return s.result, nil
}

func textResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
