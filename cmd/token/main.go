// Command token prints a development access token for a roster entry.
//
// Usage:
//
//	token --uid=abc123
//	token --email=user@example.com
//
// The token is signed with the configured auth.jwt_secret and carries the
// role currently recorded on the roster.
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
	"github.com/heartmarshall/cypress-connect/internal/auth"
	"github.com/heartmarshall/cypress-connect/internal/config"
	"github.com/heartmarshall/cypress-connect/internal/service/operator"
)

func main() {
	uid := flag.String("uid", "", "uid of the roster entry")
	email := flag.String("email", "", "email of the roster entry")
	flag.Parse()

	if *uid == "" && *email == "" {
		fmt.Fprintln(os.Stderr, "Usage: token --uid=<uid> | --email=user@example.com")
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

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	token, entry, err := operator.NewService(logger, backend.Store, jwtManager).IssueToken(ctx, operator.Lookup{UID: *uid, Email: *email})
	if err != nil {
		logger.Error("issue token failed", slog.String("error", err.Error()))
		backend.Close()
		os.Exit(1)
	}

	logger.Info("token issued",
		slog.String("uid", entry.UID),
		slog.String("role", entry.Role.String()),
		slog.Duration("ttl", cfg.Auth.AccessTokenTTL),
	)
	fmt.Println(token)
}
