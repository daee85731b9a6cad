package app

import (
	"context"
	"log/slog"

	"portfoliosync.shikanime.studio/internal/config"
	"portfoliosync.shikanime.studio/internal/portfolio"
)

// Sync runs a full sync for cfg. It fails when any catalog entry could not
// be synced, after every artifact has been written.
func Sync(ctx context.Context, cfg *config.Config) error {
	shutdown, err := config.SetupTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	p, err := portfolio.NewForConfig(cfg)
	if err != nil {
		return err
	}
	sum, err := p.Sync(ctx)
	if err != nil {
		return err
	}
	for _, f := range sum.Failures {
		slog.ErrorContext(ctx, "Project not published", "owner", f.Entry.Owner, "repo", f.Entry.Name, "error", f.Err)
	}
	return sum.Err()
}
