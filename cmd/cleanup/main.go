// Command cleanup deletes star records whose resource is no longer live.
// It is intended to be invoked by an external cron job, not as an
// in-process goroutine.
//
// Flags:
//
//	--dry-run   report orphaned stars without deleting them
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/app"
	"github.com/heartmarshall/cypress-connect/internal/config"
	"github.com/heartmarshall/cypress-connect/internal/service/operator"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report orphaned stars without deleting them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("open document store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backend.Close()

	res, err := operator.NewService(logger, backend.Store, nil).SweepOrphanStars(ctx, *dryRun)
	if err != nil {
		logger.Error("orphan star sweep failed",
			slog.String("error", err.Error()),
			slog.Int("deleted", res.Deleted),
		)
		backend.Close()
		os.Exit(1)
	}

	logger.Info("orphan star sweep completed",
		slog.Bool("dry_run", res.DryRun),
		slog.Int("scanned", res.Scanned),
		slog.Int("orphans", len(res.Orphans)),
		slog.Int("deleted", res.Deleted),
		slog.Int("malformed", res.Malformed),
	)
}
