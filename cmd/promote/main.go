// Command promote makes a roster entry a leader. It is used to bootstrap
// the first moderator.
//
// Usage:
//
//	promote --uid=abc123
//	promote --email=user@example.com
//
// Uses the same configuration as the server; the document store driver
// must be persistent for the change to outlive the command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/app"
	"github.com/heartmarshall/cypress-connect/internal/config"
	"github.com/heartmarshall/cypress-connect/internal/service/operator"
)

func main() {
	uid := flag.String("uid", "", "uid of the roster entry to promote")
	email := flag.String("email", "", "email of the roster entry to promote")
	flag.Parse()

	if *uid == "" && *email == "" {
		fmt.Fprintln(os.Stderr, "Usage: promote --uid=<uid> | --email=user@example.com")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("open document store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backend.Close()

	svc := operator.NewService(logger, backend.Store, nil)
	entry, changed, err := svc.Promote(ctx, operator.Lookup{UID: *uid, Email: *email})
	if err != nil {
		logger.Error("promote failed", slog.String("error", err.Error()))
		backend.Close()
		os.Exit(1)
	}

	if !changed {
		fmt.Printf("Roster entry %s (%s) is already a leader.\n", entry.UID, entry.Email)
		return
	}
	fmt.Printf("Roster entry %s (%s) promoted to leader.\n", entry.UID, entry.Email)
}
