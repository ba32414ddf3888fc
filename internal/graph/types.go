package graph

import "fmt"

// Kind classifies a node. The set is closed: every switch over Kind handles
// all three cases.
type Kind int

const (
	KindDocument Kind = iota
	KindMissing
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindMissing:
		return "missing"
	case KindExternal:
		return "external"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText lets Kind appear as a string in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "document":
		return KindDocument, nil
	case "missing":
		return KindMissing, nil
	case "external":
		return KindExternal, nil
	}
	return 0, fmt.Errorf("unknown node kind: %q", s)
}

// Node is a deduplicated vertex: one document, missing document or external resource.
type Node struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
}

// Edge is one reference occurrence from a document to a node. External
// targets live in their own identity space, so a URL and a file path with the
// same spelling are different nodes.
type Edge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	External bool   `json:"external,omitempty"`
	Text     string `json:"text"`
	Line     int    `json:"line"`
	Fragment string `json:"fragment,omitempty"`
}

// EdgeKey identifies an edge for reporting. Parallel edges on different lines
// stay distinguishable.
type EdgeKey struct {
	Source   string
	Target   string
	External bool
	Line     int
}

func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, External: e.External, Line: e.Line}
}

// TargetRef is the key of the node the edge points at.
func (e Edge) TargetRef() NodeRef {
	return NodeRef{ID: e.Target, External: e.External}
}

// NodeRef keys a node. Documents and missing documents share the path space;
// external resources have their own.
type NodeRef struct {
	ID       string
	External bool
}

// Ref returns the key of n.
func (n Node) Ref() NodeRef {
	return NodeRef{ID: n.ID, External: n.Kind == KindExternal}
}

// PathRef keys a document or missing document.
func PathRef(id string) NodeRef {
	return NodeRef{ID: id}
}

// DisplayLabel is the edge caption used by the serializers.
func (e Edge) DisplayLabel() string {
	return fmt.Sprintf("%s (L%d)", e.Text, e.Line)
}

const maxLabelRunes = 50

// LabelFor derives a node's display label from its identity.
func LabelFor(id string, kind Kind) string {
	switch kind {
	case KindDocument, KindMissing:
		return id
	case KindExternal:
		r := []rune(id)
		if len(r) <= maxLabelRunes {
			return id
		}
		return string(r[:maxLabelRunes-3]) + "..."
	default:
		return id
	}
}
