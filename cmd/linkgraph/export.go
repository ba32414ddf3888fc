package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"linkgraph/internal/engine"
	"linkgraph/internal/store"
)

var exportFlags struct {
	scan scanFlags
	db   string
}

var exportCmd = &cobra.Command{
	Use:   "export [DIR]",
	Short: "Write the link graph of DIR to a SQLite database",
	Long:  "Scan DIR and write nodes, edges and exclusion decisions to a fresh SQLite file.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	exportFlags.scan.register(exportCmd)
	exportCmd.Flags().StringVar(&exportFlags.db, "db", "", "SQLite file to write (recreated)")
	_ = exportCmd.MarkFlagRequired("db")
}

func runExport(cmd *cobra.Command, args []string) error {
	root := rootArg(args)
	cfg, err := loadConfig(cmd, root, &exportFlags.scan)
	if err != nil {
		return err
	}

	res, err := engine.Scan(cmd.Context(), engineOptions(cfg, root))
	if err != nil {
		return err
	}

	if err := os.Remove(exportFlags.db); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove old database: %w", err)
	}
	st, err := store.Open(exportFlags.db)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Save(cmd.Context(), res); err != nil {
		return err
	}
	okColor.Fprintf(cmd.OutOrStdout(), "Exported %d document(s) and %d link(s) to %s\n",
		res.Stats.Documents, len(res.Graph.Edges()), exportFlags.db)
	return nil
}
