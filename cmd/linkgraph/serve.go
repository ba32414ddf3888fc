package main

import (
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linkgraph/internal/server"
	"linkgraph/util"
)

var serveFlags struct {
	scan     scanFlags
	watch    bool
	debounce time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve [DIR]",
	Short: "Serve the link graph over MCP on stdio",
	Long:  "Start a Model Context Protocol server on stdio. DIR defaults to the git root of the working directory.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func init() {
	serveFlags.scan.register(serveCmd)
	serveCmd.Flags().BoolVarP(&serveFlags.watch, "watch", "w", false, "rescan when documents or ignore files change")
	serveCmd.Flags().DurationVar(&serveFlags.debounce, "debounce", server.DefaultWatchDebounce, "quiet period before a watch-triggered rescan")
}

func runServe(cmd *cobra.Command, args []string) error {
	var root string
	if len(args) > 0 && args[0] != "" {
		root = args[0]
	} else {
		gitRoot, err := util.FindGitRoot("")
		if err != nil {
			return err
		}
		root = gitRoot
	}

	cfg, err := loadConfig(cmd, root, &serveFlags.scan)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting MCP server", "root", root)
	srv := server.NewServer(engineOptions(cfg, root), cfg.RenderOptions(), Version, slog.Default())
	if serveFlags.watch {
		srv.EnableWatch(serveFlags.debounce)
	}
	return srv.Run(ctx)
}
