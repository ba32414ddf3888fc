package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"linkgraph/internal/config"
	"linkgraph/internal/engine"
)

// scanFlags are shared by every command that scans a tree.
type scanFlags struct {
	noGitignore       bool
	noDefaultExcludes bool
	exclude           []string
	extensions        []string
	jobs              int
	includeExternal   bool
	hideIsolated      bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noGitignore, "no-gitignore", false, "ignore .gitignore files")
	cmd.Flags().BoolVar(&f.noDefaultExcludes, "no-default-excludes", false, "do not skip dependency and build directories")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "gitignore-style pattern to exclude (repeatable)")
	cmd.Flags().StringSliceVar(&f.extensions, "ext", nil, "document extensions to scan (default .md)")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "parallel extraction workers (default: number of CPUs)")
	cmd.Flags().BoolVar(&f.includeExternal, "include-external", false, "include external URLs as nodes")
	cmd.Flags().BoolVar(&f.hideIsolated, "hide-isolated", false, "omit documents with no links in or out")
}

// loadConfig layers the config file, LINKGRAPH_* variables and explicitly set
// flags, in that order.
func loadConfig(cmd *cobra.Command, root string, f *scanFlags) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadForRoot(root, path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("no-gitignore") {
		cfg.Scan.IgnoreFiles = !f.noGitignore
	}
	if flags.Changed("no-default-excludes") {
		cfg.Scan.DefaultExcludes = !f.noDefaultExcludes
	}
	if flags.Changed("exclude") {
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, f.exclude...)
	}
	if flags.Changed("ext") {
		cfg.Scan.Extensions = f.extensions
	}
	if flags.Changed("jobs") {
		cfg.Scan.Jobs = f.jobs
	}
	if flags.Changed("include-external") {
		cfg.Output.IncludeExternal = f.includeExternal
	}
	if flags.Changed("hide-isolated") {
		cfg.Output.HideIsolated = f.hideIsolated
	}
	return cfg, nil
}

func engineOptions(cfg *config.Config, root string) engine.Options {
	return cfg.EngineOptions(root, slog.Default())
}

func rootArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return "."
}
