package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/cypress-connect/internal/adapter/memstore"
	"github.com/heartmarshall/cypress-connect/internal/adapter/postgres"
	"github.com/heartmarshall/cypress-connect/internal/adapter/postgres/document"
	"github.com/heartmarshall/cypress-connect/internal/adapter/redis/changebus"
	"github.com/heartmarshall/cypress-connect/internal/config"
	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/migrations"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Component is a named dependency reported by the health endpoints.
type Component struct {
	Name string
	P    pinger
}

// Backend is an opened document store together with the background loop
// that keeps its live queries fresh.
type Backend struct {
	Store      docstore.Store
	Components []Component

	run     func(ctx context.Context) error
	closers []func()
}

// OpenBackend connects the document store selected by cfg.DocStore.
func OpenBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Backend, error) {
	switch cfg.DocStore.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory document store; data is lost on restart")
		return &Backend{
			Store: memstore.New(),
			run: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
		}, nil
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown document store driver %q", cfg.DocStore.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Backend, error) {
	if cfg.DocStore.Migrate {
		if err := postgres.Migrate(ctx, cfg.Database.DSN, migrations.FS, log); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		Components: []Component{{Name: "database", P: pool}},
		closers:    []func(){pool.Close},
	}

	var bus interface {
		Publish(ctx context.Context, collection string) error
		Listen(ctx context.Context) (<-chan string, error)
	}
	switch cfg.DocStore.ChangeBus {
	case config.ChangeBusRedis:
		client, err := changebus.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		rb := changebus.New(client, cfg.DocStore.Channel, log)
		b.Components = append(b.Components, Component{Name: "redis", P: rb})
		bus = rb
	default:
		bus = postgres.NewNotifyBus(pool, cfg.DocStore.Channel, log)
	}

	store := document.New(log, pool, bus)
	b.Store = store
	b.run = store.Run

	log.Info("document store connected",
		slog.String("driver", cfg.DocStore.Driver),
		slog.String("change_bus", cfg.DocStore.ChangeBus),
	)
	return b, nil
}

// Run keeps live queries fresh until ctx is done.
func (b *Backend) Run(ctx context.Context) error {
	if b.run == nil {
		<-ctx.Done()
		return nil
	}
	return b.run(ctx)
}

// Close releases connections in reverse order of acquisition.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
