package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linkgraph/internal/extract"
	"linkgraph/internal/graph"
)

func ref(target string) extract.Reference {
	return extract.Reference{Target: target, Label: "x", Line: 1}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a/./b/../c.md", "a/c.md"},
		{"/docs/x.md", "docs/x.md"},
		{"docs//x.md", "docs/x.md"},
		{`docs\x.md`, "docs/x.md"},
		{"", "."},
		{"/", "."},
		{"../x.md", "../x.md"},
		{"a/../../x.md", "../x.md"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Canonicalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Canonicalize(got), "not idempotent")
		})
	}
}

func TestResolve(t *testing.T) {
	known := NewDocumentSet("README.md", "docs/guide.md", "docs/api.md", "docs/my file.md")

	tests := []struct {
		name   string
		target string
		source string
		want   graph.Target
	}{
		{
			name:   "source relative",
			target: "api.md",
			source: "docs/guide.md",
			want:   graph.Target{ID: "docs/api.md", Kind: graph.KindDocument},
		},
		{
			name:   "dot segments collapse",
			target: "./../docs/./api.md",
			source: "docs/guide.md",
			want:   graph.Target{ID: "docs/api.md", Kind: graph.KindDocument},
		},
		{
			name:   "root relative fallback",
			target: "README.md",
			source: "docs/guide.md",
			want:   graph.Target{ID: "README.md", Kind: graph.KindDocument},
		},
		{
			name:   "leading slash is root relative",
			target: "/docs/api.md",
			source: "docs/guide.md",
			want:   graph.Target{ID: "docs/api.md", Kind: graph.KindDocument},
		},
		{
			name:   "fragment is split off",
			target: "api.md#auth",
			source: "docs/guide.md",
			want:   graph.Target{ID: "docs/api.md", Kind: graph.KindDocument, Fragment: "auth"},
		},
		{
			name:   "percent escapes decode",
			target: "my%20file.md",
			source: "docs/guide.md",
			want:   graph.Target{ID: "docs/my file.md", Kind: graph.KindDocument},
		},
		{
			name:   "missing keeps the source relative path",
			target: "nope.md",
			source: "docs/guide.md",
			want:   graph.Target{ID: "docs/nope.md", Kind: graph.KindMissing},
		},
		{
			name:   "climbing above the root is missing",
			target: "../outside.md",
			source: "README.md",
			want:   graph.Target{ID: "../outside.md", Kind: graph.KindMissing},
		},
		{
			name:   "http URL",
			target: "https://example.com/a#b",
			source: "README.md",
			want:   graph.Target{ID: "https://example.com/a", Kind: graph.KindExternal, Fragment: "b"},
		},
		{
			name:   "mailto",
			target: "mailto:team@example.com",
			source: "README.md",
			want:   graph.Target{ID: "mailto:team@example.com", Kind: graph.KindExternal},
		},
		{
			name:   "protocol relative",
			target: "//cdn.example.com/x.js",
			source: "README.md",
			want:   graph.Target{ID: "//cdn.example.com/x.js", Kind: graph.KindExternal},
		},
		{
			name:   "drive letter is not a scheme",
			target: "C:/notes.md",
			source: "README.md",
			want:   graph.Target{ID: "C:/notes.md", Kind: graph.KindMissing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(ref(tt.target), tt.source, known))
		})
	}
}

func TestResolveAmbiguity(t *testing.T) {
	known := NewDocumentSet("README.md", "docs/README.md", "docs/guide.md")

	got := Resolve(ref("README.md"), "docs/guide.md", known)

	assert.Equal(t, "docs/README.md", got.ID)
	assert.Equal(t, graph.KindDocument, got.Kind)
	assert.Equal(t, "README.md", got.Alternate)
}

func TestResolveIdempotent(t *testing.T) {
	known := NewDocumentSet("a/b.md", "c.md")
	targets := []string{"b.md", "../c.md", "./b.md#x", "/c.md", "zzz.md", "https://x.io"}

	for _, target := range targets {
		first := Resolve(ref(target), "a/index.md", known)
		second := Resolve(ref(target), "a/index.md", known)
		assert.Equal(t, first, second, target)
		if first.Kind != graph.KindExternal {
			assert.Equal(t, first.ID, Canonicalize(first.ID), target)
		}
	}
}

func TestNotationVariantsShareIdentity(t *testing.T) {
	known := NewDocumentSet("docs/api.md")
	variants := []string{"api.md", "./api.md", "api.md#top", "../docs/api.md", "/docs/api.md", "docs/api.md"}

	for _, v := range variants {
		assert.Equal(t, "docs/api.md", Resolve(ref(v), "docs/index.md", known).ID, v)
	}
}
