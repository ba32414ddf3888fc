// Package resolve turns raw link targets into canonical graph identities.
package resolve

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"linkgraph/internal/extract"
	"linkgraph/internal/graph"
)

// Known is the set of scanned document identities.
type Known interface {
	Has(id string) bool
}

// DocumentSet is a map-backed Known.
type DocumentSet map[string]struct{}

func NewDocumentSet(ids ...string) DocumentSet {
	s := make(DocumentSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s DocumentSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Two or more characters so Windows drive letters ("C:") are not schemes.
var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]+:`)

// IsExternal reports whether target names a non-filesystem resource.
func IsExternal(target string) bool {
	return schemePrefix.MatchString(target) || strings.HasPrefix(target, "//")
}

// Resolve classifies ref, found in the document source, against known.
// It never fails: every target becomes a document, missing or external node.
func Resolve(ref extract.Reference, source string, known Known) graph.Target {
	target, fragment := splitFragment(strings.TrimSpace(ref.Target))

	if IsExternal(target) {
		return graph.Target{ID: target, Kind: graph.KindExternal, Fragment: fragment}
	}

	target = unescape(target)

	if strings.HasPrefix(target, "/") {
		id := Canonicalize(target)
		return graph.Target{ID: id, Kind: kindOf(id, known), Fragment: fragment}
	}

	relative := Canonicalize(path.Join(path.Dir(source), target))
	rooted := Canonicalize(target)

	switch {
	case known.Has(relative):
		t := graph.Target{ID: relative, Kind: graph.KindDocument, Fragment: fragment}
		if rooted != relative && known.Has(rooted) {
			t.Alternate = rooted
		}
		return t
	case known.Has(rooted):
		return graph.Target{ID: rooted, Kind: graph.KindDocument, Fragment: fragment}
	default:
		return graph.Target{ID: relative, Kind: graph.KindMissing, Fragment: fragment}
	}
}

// Canonicalize normalizes a root-relative slash path: "." and ".." segments
// are collapsed, leading "/" removed, and the root itself is ".". Segments that climb above
// the root are kept, so such paths stay distinct from in-root documents.
// Canonicalize(Canonicalize(p)) == Canonicalize(p).
func Canonicalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimLeft(p, "/")
	return path.Clean(p)
}

func splitFragment(target string) (string, string) {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

func unescape(target string) string {
	if !strings.Contains(target, "%") {
		return target
	}
	decoded, err := url.PathUnescape(target)
	if err != nil {
		return target
	}
	return decoded
}

func kindOf(id string, known Known) graph.Kind {
	if known.Has(id) {
		return graph.KindDocument
	}
	return graph.KindMissing
}
