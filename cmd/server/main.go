// Command server runs the community catalog HTTP API.
//
// Flags:
//
//	--migrate   apply document store migrations before serving (postgres driver)
//
// Configuration is read from CONFIG_PATH (default ./config.yaml) and the
// environment. Exit codes: 0 = clean shutdown, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/cypress-connect/internal/app"
	"github.com/heartmarshall/cypress-connect/internal/config"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply document store migrations before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *migrate {
		cfg.DocStore.Migrate = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("server: %v", err)
	}
}
