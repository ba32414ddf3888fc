// Package render serializes a link graph to text formats consumed by layout
// tools, and drives Graphviz to turn DOT into images.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"linkgraph/internal/graph"
)

// Format specifies the serialization format.
type Format string

const (
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
	FormatJSON    Format = "json"
)

// Extension returns the conventional file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatMermaid:
		return ".mmd"
	case FormatJSON:
		return ".json"
	default:
		return ".dot"
	}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatDOT:
		return FormatDOT, nil
	case FormatMermaid:
		return FormatMermaid, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Options filters what is emitted.
type Options struct {
	IncludeExternal bool
	HideIsolated    bool
}

// Serialize renders m in the given format. Identical graphs always produce
// byte-identical output.
func Serialize(m *graph.Model, format Format, opts Options) (string, error) {
	switch format {
	case FormatDOT:
		return DOT(m, opts), nil
	case FormatMermaid:
		return Mermaid(m, opts), nil
	case FormatJSON:
		return JSON(m, opts)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

type view struct {
	files     []graph.Node // documents and missing documents, by ID
	externals []graph.Node // by ID
	edges     []graph.Edge // model order
}

// visible applies opts to m. File nodes come first, then external nodes,
// each group sorted by identity.
func visible(m *graph.Model, opts Options) view {
	hidden := make(map[graph.NodeRef]bool)
	if opts.HideIsolated {
		for _, n := range m.IsolatedNodes() {
			hidden[n.Ref()] = true
		}
	}

	var v view
	shown := make(map[graph.NodeRef]bool)
	for _, n := range m.Nodes() {
		if hidden[n.Ref()] {
			continue
		}
		switch n.Kind {
		case graph.KindDocument, graph.KindMissing:
			v.files = append(v.files, n)
		case graph.KindExternal:
			if !opts.IncludeExternal {
				continue
			}
			v.externals = append(v.externals, n)
		}
		shown[n.Ref()] = true
	}
	sort.Slice(v.files, func(i, j int) bool { return v.files[i].ID < v.files[j].ID })
	sort.Slice(v.externals, func(i, j int) bool { return v.externals[i].ID < v.externals[j].ID })

	for _, e := range m.Edges() {
		if shown[graph.PathRef(e.Source)] && shown[e.TargetRef()] {
			v.edges = append(v.edges, e)
		}
	}
	return v
}

// dotStyle maps a node kind to its Graphviz attributes.
func dotStyle(k graph.Kind) string {
	switch k {
	case graph.KindDocument:
		return `fillcolor=lightblue, style="rounded,filled"`
	case graph.KindMissing:
		return `fillcolor=lightcoral, style="rounded,filled"`
	case graph.KindExternal:
		return `fillcolor=lightyellow, style="rounded,filled", shape=ellipse`
	default:
		return `style="rounded"`
	}
}

// DOT creates a Graphviz DOT description.
func DOT(m *graph.Model, opts Options) string {
	v := visible(m, opts)

	var sb strings.Builder
	sb.WriteString("digraph markdown_links {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n")
	sb.WriteString("\n")

	for _, n := range append(v.files, v.externals...) {
		fmt.Fprintf(&sb, "    %s [label=\"%s\", %s];\n", dotID(n.Ref()), escapeDOTLabel(n.Label), dotStyle(n.Kind))
	}

	sb.WriteString("\n")
	for _, e := range v.edges {
		fmt.Fprintf(&sb, "    %s -> %s [label=\"%s\"];\n", dotID(graph.PathRef(e.Source)), dotID(e.TargetRef()), escapeDOTLabel(e.DisplayLabel()))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// Mermaid creates a Mermaid flowchart. Node IDs are positional, so they are
// stable for a given graph.
func Mermaid(m *graph.Model, opts Options) string {
	v := visible(m, opts)

	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	ids := make(map[graph.NodeRef]string)
	for i, n := range append(v.files, v.externals...) {
		id := fmt.Sprintf("n%d", i)
		ids[n.Ref()] = id
		switch n.Kind {
		case graph.KindExternal:
			fmt.Fprintf(&sb, "    %s([\"%s\"]):::%s\n", id, escapeMermaidLabel(n.Label), n.Kind)
		default:
			fmt.Fprintf(&sb, "    %s[\"%s\"]:::%s\n", id, escapeMermaidLabel(n.Label), n.Kind)
		}
	}

	sb.WriteString("\n")
	for _, e := range v.edges {
		fmt.Fprintf(&sb, "    %s -->|\"%s\"| %s\n", ids[graph.PathRef(e.Source)], escapeMermaidLabel(e.DisplayLabel()), ids[e.TargetRef()])
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef document fill:lightblue,stroke:#333\n")
	sb.WriteString("    classDef missing fill:lightcoral,stroke:#333\n")
	sb.WriteString("    classDef external fill:lightyellow,stroke:#333\n")
	return sb.String()
}

type jsonGraph struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// JSON creates an indented JSON document with nodes and edges.
func JSON(m *graph.Model, opts Options) (string, error) {
	v := visible(m, opts)
	out := jsonGraph{
		Nodes: append(v.files, v.externals...),
		Edges: v.edges,
	}
	if out.Nodes == nil {
		out.Nodes = []graph.Node{}
	}
	if out.Edges == nil {
		out.Edges = []graph.Edge{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal graph: %w", err)
	}
	return string(data) + "\n", nil
}

// externalPrefix marks external DOT IDs. Path identities never start with
// "/", so the prefixed form cannot equal any document ID.
const externalPrefix = "/external/"

func dotID(ref graph.NodeRef) string {
	id := ref.ID
	if ref.External {
		id = externalPrefix + id
	}
	return "\"" + escapeDOTLabel(id) + "\""
}

func escapeDOTLabel(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
	)
	return replacer.Replace(s)
}

func escapeMermaidLabel(s string) string {
	replacer := strings.NewReplacer(
		"\"", "#quot;",
		"<", "&lt;",
		">", "&gt;",
		"|", "#124;",
	)
	return replacer.Replace(s)
}
