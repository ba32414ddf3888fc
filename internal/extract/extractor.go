// Package extract finds link references in Markdown text.
//
// Documents are parsed as CommonMark, so code spans and code blocks never
// contribute references. Targets are neither resolved nor validated, and
// malformed markup simply produces no match.
package extract

import (
	"iter"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Reference is one link occurrence inside a document.
type Reference struct {
	Target string `json:"target"`
	Label  string `json:"label"`
	Line   int    `json:"line"` // 1-based
}

// markdown is CommonMark plus Linkify, which turns bare http, https and ftp
// URLs into autolinks.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// Extract returns the references in source in document order. Each call
// re-parses source from the start.
func Extract(source string) iter.Seq[Reference] {
	return func(yield func(Reference) bool) {
		src := []byte(source)
		doc := markdown.Parser().Parse(text.NewReader(src))
		starts := lineStarts(src)

		_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			ref, ok := reference(n, src)
			if !ok {
				return ast.WalkContinue, nil
			}
			ref.Line = lineOf(starts, n.Pos())
			if !yield(ref) {
				return ast.WalkStop, nil
			}
			return ast.WalkContinue, nil
		})
	}
}

// All materializes Extract.
func All(source string) []Reference {
	var refs []Reference
	for ref := range Extract(source) {
		refs = append(refs, ref)
	}
	return refs
}

func reference(n ast.Node, src []byte) (Reference, bool) {
	switch n := n.(type) {
	case *ast.Link:
		return destination(n.Destination, n, src)
	case *ast.Image:
		return destination(n.Destination, n, src)
	case *ast.AutoLink:
		// Bare e-mail addresses and scheme-less www. hosts are not references.
		if n.AutoLinkType != ast.AutoLinkURL || n.Protocol != nil {
			return Reference{}, false
		}
		return Reference{Target: string(n.URL(src)), Label: string(n.Label(src))}, true
	}
	return Reference{}, false
}

func destination(dest []byte, n ast.Node, src []byte) (Reference, bool) {
	target := strings.TrimSpace(string(util.UnescapePunctuations(dest)))
	if skipTarget(target) {
		return Reference{}, false
	}
	return Reference{Target: target, Label: label(n, src)}, true
}

// label flattens the inline content of a link or the alt text of an image.
func label(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// skipTarget reports targets that never leave the current document.
func skipTarget(target string) bool {
	return target == "" || strings.HasPrefix(target, "#")
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineOf maps a byte offset to its 1-based line.
func lineOf(starts []int, pos int) int {
	if pos < 0 {
		return 1
	}
	return sort.SearchInts(starts, pos+1)
}
