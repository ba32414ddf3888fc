package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"linkgraph/internal/engine"
	"linkgraph/internal/graph"
	"linkgraph/internal/render"
	"linkgraph/internal/resolve"
	"linkgraph/util"
)

// Arguments structs

type ScanArgs struct{}

type ScanStatusArgs struct{}

type GetLinksArgs struct {
	Path string `json:"path" jsonschema:"Document path relative to the root, absolute path, or file URI"`
}

type GetBacklinksArgs struct {
	Path string `json:"path" jsonschema:"Document path relative to the root, absolute path, or file URI"`
}

type GetBrokenLinksArgs struct{}

type GetGraphArgs struct {
	Format          string `json:"format,omitempty" jsonschema:"Output format: dot, mermaid or json (default dot)"`
	IncludeExternal bool   `json:"include_external,omitempty" jsonschema:"Include external URL nodes"`
	HideIsolated    bool   `json:"hide_isolated,omitempty" jsonschema:"Omit documents with no links in or out"`
}

// LinkInfo is one edge as reported to clients.
type LinkInfo struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Line     int    `json:"line"`
	Fragment string `json:"fragment,omitempty"`
	URI      string `json:"uri,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "scan",
		Description: "Scans the root directory and rebuilds the link graph",
	}, s.handleScan)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "scan_status",
		Description: "Returns the current scan status and summary counts",
	}, s.handleScanStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_links",
		Description: "Lists the links written in a document, in line order",
	}, s.handleGetLinks)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_backlinks",
		Description: "Lists the links from other documents that point at a document",
	}, s.handleGetBacklinks)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_broken_links",
		Description: "Lists links whose target document does not exist",
	}, s.handleGetBrokenLinks)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_graph",
		Description: "Returns the link graph serialized as DOT, Mermaid or JSON",
	}, s.handleGetGraph)
}

func (s *Server) handleScan(ctx context.Context, req *mcp.CallToolRequest, args ScanArgs) (*mcp.CallToolResult, any, error) {
	res, err := s.Index(ctx)
	if errors.Is(err, ErrIndexInProgress) {
		return errorResult("Scan already in progress"), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Scan failed: %v", err)), nil, nil
	}

	_, _, duration := s.GetIndexStatus()
	msg := fmt.Sprintf("Scanned %d documents: %d internal links (%d broken), %d external links in %.2fs",
		res.Stats.Documents, res.Stats.InternalLinks, res.Stats.BrokenLinks, res.Stats.ExternalLinks, duration.Seconds())
	return textResult(msg), nil, nil
}

func (s *Server) handleScanStatus(ctx context.Context, req *mcp.CallToolRequest, args ScanStatusArgs) (*mcp.CallToolResult, any, error) {
	status, err, duration := s.GetIndexStatus()

	result := map[string]any{
		"status": string(status),
		"root":   s.opts.Root,
	}

	if duration > 0 {
		result["duration_seconds"] = duration.Seconds()
	}

	if err != nil {
		result["error"] = err.Error()
	}

	s.indexMu.RLock()
	if s.result != nil {
		result["stats"] = s.result.Stats
		result["warnings"] = len(s.result.Warnings)
		result["ambiguities"] = len(s.result.Ambiguities)
	}
	s.indexMu.RUnlock()

	return jsonResult(result)
}

func (s *Server) handleGetLinks(ctx context.Context, req *mcp.CallToolRequest, args GetLinksArgs) (*mcp.CallToolResult, any, error) {
	res, err := s.current(ctx)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	id, err := documentID(res.Root, args.Path)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	if n, ok := res.Graph.Node(id); !ok || n.Kind != graph.KindDocument {
		return errorResult(fmt.Sprintf("Document not found: %s", id)), nil, nil
	}

	links := s.describe(res, res.Graph.Outgoing(id), func(e graph.Edge) graph.NodeRef { return e.TargetRef() })
	if len(links) == 0 {
		return textResult("No links found."), nil, nil
	}
	return jsonResult(links)
}

func (s *Server) handleGetBacklinks(ctx context.Context, req *mcp.CallToolRequest, args GetBacklinksArgs) (*mcp.CallToolResult, any, error) {
	res, err := s.current(ctx)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	id, err := documentID(res.Root, args.Path)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	if _, ok := res.Graph.Node(id); !ok {
		return errorResult(fmt.Sprintf("Document not found: %s", id)), nil, nil
	}

	links := s.describe(res, res.Graph.Incoming(id), func(e graph.Edge) graph.NodeRef { return graph.PathRef(e.Source) })
	if len(links) == 0 {
		return textResult("No backlinks found."), nil, nil
	}
	return jsonResult(links)
}

func (s *Server) handleGetBrokenLinks(ctx context.Context, req *mcp.CallToolRequest, args GetBrokenLinksArgs) (*mcp.CallToolResult, any, error) {
	res, err := s.current(ctx)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	links := s.describe(res, res.Graph.Broken(), func(e graph.Edge) graph.NodeRef { return graph.PathRef(e.Source) })
	if len(links) == 0 {
		return textResult("No broken links found."), nil, nil
	}
	return jsonResult(links)
}

func (s *Server) handleGetGraph(ctx context.Context, req *mcp.CallToolRequest, args GetGraphArgs) (*mcp.CallToolResult, any, error) {
	res, err := s.current(ctx)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	format := render.FormatDOT
	if args.Format != "" {
		if format, err = render.ParseFormat(args.Format); err != nil {
			return errorResult(err.Error()), nil, nil
		}
	}

	opts := s.renderOpts
	opts.IncludeExternal = opts.IncludeExternal || args.IncludeExternal
	opts.HideIsolated = opts.HideIsolated || args.HideIsolated

	out, err := render.Serialize(res.Graph, format, opts)
	if err != nil {
		return errorResult(fmt.Sprintf("Serialization failed: %v", err)), nil, nil
	}
	return textResult(out), nil, nil
}

// describe converts edges to LinkInfo. uriOf picks the endpoint whose file
// URI is reported; the URI is omitted for endpoints that are not documents.
func (s *Server) describe(res *engine.Result, edges []graph.Edge, uriOf func(graph.Edge) graph.NodeRef) []LinkInfo {
	var out []LinkInfo
	for _, e := range edges {
		n, _ := res.Graph.Lookup(e.TargetRef())
		info := LinkInfo{
			Source:   e.Source,
			Target:   e.Target,
			Kind:     n.Kind.String(),
			Text:     e.Text,
			Line:     e.Line,
			Fragment: e.Fragment,
		}
		if ref := uriOf(e); isDocument(res, ref) {
			info.URI = util.PathToURI(filepath.Join(res.Root, filepath.FromSlash(ref.ID)))
		}
		out = append(out, info)
	}
	return out
}

func isDocument(res *engine.Result, ref graph.NodeRef) bool {
	n, ok := res.Graph.Lookup(ref)
	return ok && n.Kind == graph.KindDocument
}

// documentID maps a client-supplied path to a node identity. Relative paths
// are taken relative to root; absolute paths and file URIs must lie inside it.
func documentID(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("path is required")
	}
	p = util.URIToPath(p)
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return "", fmt.Errorf("path %s is not inside %s: %w", p, root, err)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("path %s is not inside %s", p, root)
		}
		p = rel
	}
	return resolve.Canonicalize(filepath.ToSlash(p)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to encode result: %v", err)), nil, nil
	}
	return textResult(string(jsonBytes)), nil, nil
}
