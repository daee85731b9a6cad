package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"portfoliosync.shikanime.studio/cmd/portfoliosync/app"
	"portfoliosync.shikanime.studio/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("portfoliosync failed", "error", err)
		os.Exit(1)
	}
}

var (
	cfg = config.New()

	rootCmd = &cobra.Command{
		Use:           "portfoliosync",
		Short:         "Build-time GitHub data sync for the portfolio site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.SetupLog(cfg)
		},
	}
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Fetch the catalog repositories and write the site data",
		RunE:  runSync,
	}
)

func init() {
	syncCmd.Flags().String("catalog", "", "Catalog file listing the repositories. Falls back to CATALOG")
	syncCmd.Flags().String("cache-dir", "", "Directory holding the per-repository cache. Falls back to CACHE_DIR")
	syncCmd.Flags().String("data-dir", "", "Directory receiving the JSON artifacts. Falls back to DATA_DIR")
	syncCmd.Flags().String("content-dir", "", "Directory receiving one markdown page per project, wiped on every run. Falls back to CONTENT_DIR")
	syncCmd.Flags().String("profile", "", "Account whose profile readme and contributions are published. Falls back to PROFILE_LOGIN, then the catalog account")
	syncCmd.Flags().Int("concurrency", 0, "Repositories fetched at once. Falls back to CONCURRENCY")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := cfg.BindFlags(cmd.Flags(), map[string]string{
		"catalog":     "CATALOG",
		"cache-dir":   "CACHE_DIR",
		"data-dir":    "DATA_DIR",
		"content-dir": "CONTENT_DIR",
		"profile":     "PROFILE_LOGIN",
		"concurrency": "CONCURRENCY",
	}); err != nil {
		return err
	}
	return app.Sync(cmd.Context(), cfg)
}
