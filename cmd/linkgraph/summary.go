package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"linkgraph/internal/engine"
	"linkgraph/internal/graph"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errColor     = color.New(color.FgRed, color.Bold)
)

// printSummary writes the human-readable scan report.
func printSummary(w io.Writer, res *engine.Result, verbose bool) {
	headingColor.Fprintf(w, "Scanned %s\n", res.Root)
	okColor.Fprintf(w, "  %d markdown file(s)\n", res.Stats.Documents)
	fmt.Fprintf(w, "  %d internal link(s)\n", res.Stats.InternalLinks)
	fmt.Fprintf(w, "  %d external link(s)\n", res.Stats.ExternalLinks)

	if res.Stats.Excluded > 0 {
		fmt.Fprintf(w, "  %d path(s) skipped\n", res.Stats.Excluded)
		if verbose {
			for _, d := range res.Skipped() {
				fmt.Fprintf(w, "    %s (%s", d.Path, d.Source)
				if d.Pattern != "" {
					fmt.Fprintf(w, " %q", d.Pattern)
				}
				if d.Origin != "" {
					fmt.Fprintf(w, " in %s", d.Origin)
				}
				fmt.Fprintln(w, ")")
			}
		}
	}

	if res.Stats.BrokenLinks > 0 {
		errColor.Fprintf(w, "  %d broken link(s)\n", res.Stats.BrokenLinks)
		printBroken(w, res.Graph.Broken())
	}

	for _, a := range res.Ambiguities {
		warnColor.Fprintf(w, "  ambiguous: %s:%d %q -> %s (also %s)\n", a.Source, a.Line, a.Target, a.Chosen, a.Alternate)
	}
	for _, warn := range res.Warnings {
		warnColor.Fprintf(w, "  warning: %s: %s\n", warn.Path, warn.Message)
	}
}

func printBroken(w io.Writer, broken []graph.Edge) {
	for _, e := range broken {
		fmt.Fprintf(w, "    %s:%d -> %s\n", e.Source, e.Line, e.Target)
	}
}
