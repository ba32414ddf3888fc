// Package engine runs a complete link-graph scan: discovery, extraction,
// resolution and graph assembly.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"linkgraph/internal/exclude"
	"linkgraph/internal/extract"
	"linkgraph/internal/graph"
	"linkgraph/internal/resolve"
	"linkgraph/internal/scanner"
)

// Options is the full configuration of one scan. It is passed by value and
// never stored globally, so concurrent scans do not interfere.
type Options struct {
	Root string

	UseDefaultExcludes bool
	RespectIgnoreFiles bool
	// IgnoreFileNames defaults to .gitignore when nil.
	IgnoreFileNames []string
	ExtraPatterns   []string
	// Extensions defaults to .md when empty.
	Extensions []string

	IncludeExternal bool

	// Jobs bounds the extraction workers; <= 0 means GOMAXPROCS.
	Jobs   int
	Logger *slog.Logger
}

// DefaultOptions mirrors the command-line defaults.
func DefaultOptions(root string) Options {
	return Options{
		Root:               root,
		UseDefaultExcludes: true,
		RespectIgnoreFiles: true,
	}
}

// Ambiguity records a target that names two different existing documents
// depending on whether it is read relative to its source or to the root.
// The source-relative document was used.
type Ambiguity struct {
	Source    string `json:"source"`
	Line      int    `json:"line"`
	Target    string `json:"target"`
	Chosen    string `json:"chosen"`
	Alternate string `json:"alternate"`
}

type Stats struct {
	Documents     int `json:"documents"`
	Excluded      int `json:"excluded"`
	InternalLinks int `json:"internal_links"`
	ExternalLinks int `json:"external_links"`
	BrokenLinks   int `json:"broken_links"`
}

// Result is the snapshot of one scan. The engine keeps no reference to it.
type Result struct {
	Root        string             `json:"root"`
	Documents   []string           `json:"documents"`
	Graph       *graph.Model       `json:"-"`
	Decisions   []exclude.Decision `json:"decisions"`
	Warnings    []scanner.Warning  `json:"warnings"`
	Ambiguities []Ambiguity        `json:"ambiguities"`
	Stats       Stats              `json:"stats"`
}

// Skipped returns the decisions that excluded a path.
func (r *Result) Skipped() []exclude.Decision {
	var out []exclude.Decision
	for _, d := range r.Decisions {
		if d.Excluded {
			out = append(out, d)
		}
	}
	return out
}

type resolvedRef struct {
	ref    extract.Reference
	target graph.Target
}

type documentResult struct {
	refs    []resolvedRef
	warning *scanner.Warning
}

// Scan runs the pipeline. Invalid roots and invalid patterns are returned as
// errors; unreadable files become warnings. On cancellation the partial
// result is dropped and ctx.Err() returned.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root, err := scanner.ResolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	policy, err := exclude.New(root, exclude.Config{
		UseDefaults:        opts.UseDefaultExcludes,
		RespectIgnoreFiles: opts.RespectIgnoreFiles,
		IgnoreFileNames:    opts.IgnoreFileNames,
		ExtraPatterns:      opts.ExtraPatterns,
	}, logger)
	if err != nil {
		return nil, err
	}

	scan, err := scanner.Scan(ctx, root, scanner.Options{
		Policy:     policy,
		Extensions: opts.Extensions,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("scan complete", "root", root, "documents", len(scan.Documents))

	known := resolve.NewDocumentSet(scan.Documents...)
	results := make([]documentResult, len(scan.Documents))

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, doc := range scan.Documents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = processDocument(root, doc, known)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Root:      root,
		Documents: scan.Documents,
		Graph:     graph.NewModel(),
		Decisions: scan.Decisions,
		Warnings:  scan.Warnings,
	}

	// Single writer: documents first, then edges in document order.
	for _, doc := range scan.Documents {
		if err := res.Graph.AddDocument(doc); err != nil {
			return nil, err
		}
	}
	for i, doc := range scan.Documents {
		dr := results[i]
		if dr.warning != nil {
			logger.Warn("skipping unreadable document", "path", dr.warning.Path, "err", dr.warning.Message)
			res.Warnings = append(res.Warnings, *dr.warning)
		}
		for _, rr := range dr.refs {
			if err := res.add(doc, rr, opts.IncludeExternal, logger); err != nil {
				return nil, err
			}
		}
	}
	res.Graph.SortEdges()

	res.Stats.Documents = len(scan.Documents)
	res.Stats.Excluded = len(res.Skipped())
	return res, nil
}

func (r *Result) add(doc string, rr resolvedRef, includeExternal bool, logger *slog.Logger) error {
	switch rr.target.Kind {
	case graph.KindExternal:
		r.Stats.ExternalLinks++
		if !includeExternal {
			return nil
		}
	case graph.KindMissing:
		r.Stats.InternalLinks++
		r.Stats.BrokenLinks++
	case graph.KindDocument:
		r.Stats.InternalLinks++
		if rr.target.Alternate != "" {
			a := Ambiguity{
				Source:    doc,
				Line:      rr.ref.Line,
				Target:    rr.ref.Target,
				Chosen:    rr.target.ID,
				Alternate: rr.target.Alternate,
			}
			logger.Warn("ambiguous link target, using source-relative path",
				"source", a.Source, "line", a.Line, "chosen", a.Chosen, "alternate", a.Alternate)
			r.Ambiguities = append(r.Ambiguities, a)
		}
	default:
		return fmt.Errorf("unexpected node kind %s", rr.target.Kind)
	}
	return r.Graph.AddEdge(doc, rr.ref, rr.target)
}

func processDocument(root, doc string, known resolve.Known) documentResult {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(doc)))
	if err != nil {
		return documentResult{warning: &scanner.Warning{Path: doc, Message: err.Error()}}
	}

	var dr documentResult
	for ref := range extract.Extract(string(data)) {
		dr.refs = append(dr.refs, resolvedRef{
			ref:    ref,
			target: resolve.Resolve(ref, doc, known),
		})
	}
	return dr
}
