package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"linkgraph/internal/engine"
	"linkgraph/internal/graph"
	"linkgraph/internal/store"
)

var checkFlags struct {
	scan scanFlags
	db   string
}

var checkCmd = &cobra.Command{
	Use:   "check [DIR]",
	Short: "List broken links under DIR",
	Long: `Scan DIR and list every link whose target document does not exist. Exits non-zero when any are found.
With --db the links are read from a database written by export instead of scanning.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkFlags.scan.register(checkCmd)
	checkCmd.Flags().StringVar(&checkFlags.db, "db", "", "read links from an exported SQLite file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkFlags.db != "" {
		return checkStored(cmd, checkFlags.db)
	}

	root := rootArg(args)
	cfg, err := loadConfig(cmd, root, &checkFlags.scan)
	if err != nil {
		return err
	}

	res, err := engine.Scan(cmd.Context(), engineOptions(cfg, root))
	if err != nil {
		return err
	}

	for _, warn := range res.Warnings {
		warnColor.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", warn.Path, warn.Message)
	}
	return reportBroken(cmd.OutOrStdout(), res.Graph.Broken(), res.Stats.Documents)
}

func checkStored(cmd *cobra.Command, path string) error {
	st, err := openDatabase(path)
	if err != nil {
		return err
	}
	defer st.Close()

	nodes, err := st.Nodes(cmd.Context())
	if err != nil {
		return err
	}
	broken, err := st.BrokenLinks(cmd.Context())
	if err != nil {
		return err
	}

	documents := 0
	for _, n := range nodes {
		if n.Kind == graph.KindDocument {
			documents++
		}
	}
	return reportBroken(cmd.OutOrStdout(), broken, documents)
}

func reportBroken(w io.Writer, broken []graph.Edge, documents int) error {
	if len(broken) == 0 {
		okColor.Fprintf(w, "No broken links in %d document(s)\n", documents)
		return nil
	}
	printBroken(w, broken)
	errColor.Fprintf(w, "%d broken link(s) in %d document(s)\n", len(broken), documents)
	return errBrokenLinks
}

// openDatabase opens an existing export; store.Open alone would create an
// empty file.
func openDatabase(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store.Open(path)
}
