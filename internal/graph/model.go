package graph

import (
	"fmt"
	"sort"
	"sync"

	"linkgraph/internal/extract"
)

// Target is a resolved reference target.
type Target struct {
	ID       string
	Kind     Kind
	Fragment string
	// Alternate holds the root-relative path when it also names an existing,
	// different document than ID.
	Alternate string
}

// Model accumulates nodes and edges for one scan. Nodes keep first-seen
// order; edges are never deduplicated.
//
// Safe for concurrent use.
type Model struct {
	mu    sync.RWMutex
	order []NodeRef
	nodes map[NodeRef]*Node
	edges []Edge
}

func NewModel() *Model {
	return &Model{nodes: make(map[NodeRef]*Node)}
}

// AddDocument registers a scanned document as a node.
func (m *Model) AddDocument(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.ensure(id, KindDocument)
	return err
}

// AddEdge records one reference from source to target, creating either node
// on first sight.
func (m *Model) AddEdge(source string, ref extract.Reference, target Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.ensure(source, KindDocument); err != nil {
		return fmt.Errorf("edge source: %w", err)
	}
	if _, err := m.ensure(target.ID, target.Kind); err != nil {
		return fmt.Errorf("edge target: %w", err)
	}

	m.edges = append(m.edges, Edge{
		Source:   source,
		Target:   target.ID,
		External: target.Kind == KindExternal,
		Text:     ref.Label,
		Line:     ref.Line,
		Fragment: target.Fragment,
	})
	return nil
}

// ensure must be called with mu held. Only a document/missing clash within
// the path space is an error; URLs never collide with paths.
func (m *Model) ensure(id string, kind Kind) (*Node, error) {
	key := NodeRef{ID: id, External: kind == KindExternal}
	if n, ok := m.nodes[key]; ok {
		if n.Kind != kind {
			return nil, fmt.Errorf("node %q already exists as %s, not %s", id, n.Kind, kind)
		}
		return n, nil
	}
	n := &Node{ID: id, Kind: kind, Label: LabelFor(id, kind)}
	m.nodes[key] = n
	m.order = append(m.order, key)
	return n, nil
}

// SortEdges orders edges by source, line, target and text so the edge list
// does not depend on worker completion order.
func (m *Model) SortEdges() {
	m.mu.Lock()
	defer m.mu.Unlock()
	sort.SliceStable(m.edges, func(i, j int) bool {
		a, b := m.edges[i], m.edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.External != b.External {
			return !a.External
		}
		return a.Text < b.Text
	})
}

// Node returns a copy of the document or missing document with the given
// path identity.
func (m *Model) Node(id string) (Node, bool) {
	return m.Lookup(PathRef(id))
}

// Lookup returns a copy of the node keyed by ref.
func (m *Model) Lookup(ref NodeRef) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[ref]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in first-seen order.
func (m *Model) Nodes() []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, 0, len(m.order))
	for _, ref := range m.order {
		out = append(out, *m.nodes[ref])
	}
	return out
}

// Edges returns a copy of the edge list.
func (m *Model) Edges() []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out
}

// IsolatedNodes returns the documents with neither incoming nor outgoing edges.
func (m *Model) IsolatedNodes() []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	touched := make(map[NodeRef]bool, len(m.nodes))
	for _, e := range m.edges {
		touched[PathRef(e.Source)] = true
		touched[e.TargetRef()] = true
	}

	var out []Node
	for _, ref := range m.order {
		n := m.nodes[ref]
		if n.Kind == KindDocument && !touched[ref] {
			out = append(out, *n)
		}
	}
	return out
}

// Outgoing returns the edges whose source is id.
func (m *Model) Outgoing(id string) []Edge {
	return m.filter(func(e Edge) bool { return e.Source == id })
}

// Incoming returns the edges whose target is the document or missing
// document id.
func (m *Model) Incoming(id string) []Edge {
	return m.filter(func(e Edge) bool { return !e.External && e.Target == id })
}

// Broken returns the edges that point at missing documents.
func (m *Model) Broken() []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Edge
	for _, e := range m.edges {
		if m.nodes[e.TargetRef()].Kind == KindMissing {
			out = append(out, e)
		}
	}
	return out
}

func (m *Model) filter(keep func(Edge) bool) []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Edge
	for _, e := range m.edges {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Counts reports the number of nodes of each kind.
func (m *Model) Counts() map[Kind]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[Kind]int, 3)
	for _, n := range m.nodes {
		counts[n.Kind]++
	}
	return counts
}
