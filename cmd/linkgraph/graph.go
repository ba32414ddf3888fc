package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"linkgraph/internal/engine"
	"linkgraph/internal/render"
)

var graphFlags struct {
	scan     scanFlags
	output   string
	name     string
	format   string
	noRender bool
}

var graphCmd = &cobra.Command{
	Use:   "graph [DIR]",
	Short: "Write the link graph of DIR and render it with Graphviz",
	Long: `Scan DIR for Markdown documents, write the link graph as DOT, Mermaid or JSON,
and render an SVG with Graphviz when DOT output is available.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func init() {
	graphFlags.scan.register(graphCmd)
	graphCmd.Flags().StringVarP(&graphFlags.output, "output", "o", "", "output directory (default .)")
	graphCmd.Flags().StringVarP(&graphFlags.name, "name", "n", "", "output file name without extension (default markdown_graph)")
	graphCmd.Flags().StringVar(&graphFlags.format, "format", "", "output format: dot, mermaid or json (default dot)")
	graphCmd.Flags().BoolVar(&graphFlags.noRender, "no-render", false, "skip Graphviz rendering")
}

func runGraph(cmd *cobra.Command, args []string) error {
	root := rootArg(args)
	cfg, err := loadConfig(cmd, root, &graphFlags.scan)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Dir = graphFlags.output
	}
	if flags.Changed("name") {
		cfg.Output.Name = graphFlags.name
	}
	if flags.Changed("format") {
		cfg.Output.Format = graphFlags.format
	}
	if flags.Changed("no-render") {
		cfg.Render.Enabled = !graphFlags.noRender
	}

	format, err := cfg.OutputFormat()
	if err != nil {
		return err
	}
	timeout, err := cfg.RenderTimeout()
	if err != nil {
		return err
	}

	res, err := engine.Scan(cmd.Context(), engineOptions(cfg, root))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	verbose, _ := cmd.Flags().GetBool("verbose")
	printSummary(out, res, verbose)

	if res.Stats.Documents == 0 {
		warnColor.Fprintln(out, "No markdown files found in the directory")
		return nil
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	text, err := render.Serialize(res.Graph, format, cfg.RenderOptions())
	if err != nil {
		return err
	}
	graphFile := filepath.Join(cfg.Output.Dir, cfg.Output.Name+format.Extension())
	if err := os.WriteFile(graphFile, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", graphFile, err)
	}
	okColor.Fprintf(out, "Generated %s file: %s\n", format, graphFile)

	if !cfg.Render.Enabled {
		return nil
	}

	dot := text
	if format != render.FormatDOT {
		dot = render.DOT(res.Graph, cfg.RenderOptions())
	}
	gv, err := render.NewGraphviz(cfg.Render.Binary, timeout)
	if err != nil {
		if errors.Is(err, render.ErrGraphvizNotFound) {
			errColor.Fprintf(out, "Error generating %s: %v\n", cfg.Render.Format, err)
			fmt.Fprintln(out, "   Make sure Graphviz is installed, or set LINKGRAPH_DOT_BINARY")
			return nil
		}
		return err
	}
	imageFile := filepath.Join(cfg.Output.Dir, cfg.Output.Name+"."+cfg.Render.Format)
	slog.Debug("rendering graph", "binary", gv.Binary(), "format", cfg.Render.Format, "timeout", timeout)
	if err := gv.Render(cmd.Context(), dot, cfg.Render.Format, imageFile); err != nil {
		errColor.Fprintf(out, "Error generating %s: %v\n", cfg.Render.Format, err)
		return nil
	}
	okColor.Fprintf(out, "Generated %s file: %s\n", cfg.Render.Format, imageFile)
	return nil
}
