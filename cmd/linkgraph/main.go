package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is the CLI version; overridden at build time via -ldflags.
var Version = "0.1.0-dev"

// errBrokenLinks makes check exit non-zero without printing usage.
var errBrokenLinks = errors.New("broken links found")

var rootCmd = &cobra.Command{
	Use:           "linkgraph",
	Short:         "Map the links between Markdown documents",
	Long:          `linkgraph scans a directory of Markdown files and builds a directed graph of the links between them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogger(verbose)
		return nil
	},
}

func init() {
	rootCmd.Version = Version

	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(backlinksCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().String("config", "", "path to a TOML config file (default: <root>/.linkgraph.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errBrokenLinks) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
