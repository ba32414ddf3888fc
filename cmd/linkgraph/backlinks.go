package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"linkgraph/internal/engine"
	"linkgraph/internal/graph"
	"linkgraph/internal/resolve"
)

var backlinksFlags struct {
	scan scanFlags
	db   string
}

var backlinksCmd = &cobra.Command{
	Use:   "backlinks DOC [DIR]",
	Short: "List the links that point at DOC",
	Long: `Scan DIR and list every link to DOC, a path relative to DIR.
With --db the links are read from a database written by export instead of scanning.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runBacklinks,
}

func init() {
	backlinksFlags.scan.register(backlinksCmd)
	backlinksCmd.Flags().StringVar(&backlinksFlags.db, "db", "", "read links from an exported SQLite file")
}

func runBacklinks(cmd *cobra.Command, args []string) error {
	doc := resolve.Canonicalize(filepath.ToSlash(args[0]))

	var edges []graph.Edge
	if backlinksFlags.db != "" {
		st, err := openDatabase(backlinksFlags.db)
		if err != nil {
			return err
		}
		defer st.Close()
		if edges, err = st.Backlinks(cmd.Context(), doc); err != nil {
			return err
		}
	} else {
		root := rootArg(args[1:])
		cfg, err := loadConfig(cmd, root, &backlinksFlags.scan)
		if err != nil {
			return err
		}
		res, err := engine.Scan(cmd.Context(), engineOptions(cfg, root))
		if err != nil {
			return err
		}
		edges = res.Graph.Incoming(doc)
	}

	out := cmd.OutOrStdout()
	if len(edges) == 0 {
		fmt.Fprintf(out, "No links to %s\n", doc)
		return nil
	}
	headingColor.Fprintf(out, "%d link(s) to %s\n", len(edges), doc)
	for _, e := range edges {
		fmt.Fprintf(out, "    %s:%d %q\n", e.Source, e.Line, e.Text)
	}
	return nil
}
