package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/cypress-connect/internal/auth"
	"github.com/heartmarshall/cypress-connect/internal/config"
	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/aggregator"
	"github.com/heartmarshall/cypress-connect/internal/service/catalog"
	"github.com/heartmarshall/cypress-connect/internal/service/dashboard"
	"github.com/heartmarshall/cypress-connect/internal/service/moderation"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
	"github.com/heartmarshall/cypress-connect/internal/service/suggestion"
	gql "github.com/heartmarshall/cypress-connect/internal/transport/graphql"
	"github.com/heartmarshall/cypress-connect/internal/transport/middleware"
	"github.com/heartmarshall/cypress-connect/internal/transport/rest"
)

// Run is the application entry point. It wires every component from cfg
// and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := NewLogger(cfg.Log, os.Stderr)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("docstore", cfg.DocStore.Driver),
	)

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return a.Serve(ctx)
}

// App is a fully wired server that has not started serving yet.
type App struct {
	cfg *config.Config
	log *slog.Logger

	backend  *Backend
	agg      *aggregator.Aggregator
	limiter  *middleware.RateLimiter
	server   *http.Server
	listener net.Listener

	stopStreams context.CancelFunc
}

// New opens the document store, builds the services and binds the listen
// address. Call Serve to start; Serve releases everything New acquired.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: logger}
	if err := a.build(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.cfg, a.log

	var (
		seeds []domain.Suggestion
		err   error
	)
	if path := cfg.Moderation.OverlaySeedPath; path != "" {
		seeds, err = overlay.LoadSeedFile(path)
		if err != nil {
			return err
		}
		logger.Info("overlay seeded", slog.String("path", path), slog.Int("suggestions", len(seeds)))
	}
	local := overlay.New(seeds...)

	a.backend, err = OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	store := a.backend.Store

	a.agg, err = aggregator.Open(ctx, store, logger, aggregator.CatalogSpecs()...)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	cat, err := catalog.NewService(logger, a.agg, local, cfg.Moderation.CatalogCacheSize)
	if err != nil {
		return fmt.Errorf("create catalog: %w", err)
	}

	engine := moderation.NewService(logger, store, local, cfg.Moderation.HistoryLimit, cfg.Moderation.WriteTimeout)
	dashboards := dashboard.NewOpener(logger, dashboard.Deps{
		Store:   store,
		Overlay: local,
		History: engine.History(),
	})

	health := rest.NewHealthHandler(BuildVersion(), cat)
	for _, c := range a.backend.Components {
		health.AddComponent(c.Name, c.P)
	}

	gqlHandler, err := gql.NewHandler(gql.NewResolver(logger, cat, engine, dashboards), logger)
	if err != nil {
		return fmt.Errorf("create graphql handler: %w", err)
	}

	a.limiter = middleware.NewRateLimiter(time.Minute)

	router := rest.NewRouter(rest.Handlers{
		Health:      health,
		Catalog:     rest.NewCatalogHandler(cat, logger),
		Suggestions: rest.NewSuggestionHandler(suggestion.NewService(logger, store), logger),
		Moderation:  rest.NewModerationHandler(engine, dashboards, logger),
		GraphQL:     gqlHandler,
	}, a.limiter.Limit(cfg.RateLimit.SubmissionsPerMinute))

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	handler := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS, logger),
		middleware.Auth(jwtManager),
		middleware.Logger(logger),
	)(router)

	// Request contexts end when shutdown starts so dashboard streams close.
	baseCtx, stopStreams := context.WithCancel(context.WithoutCancel(ctx))
	a.stopStreams = stopStreams
	a.server = &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	a.server.RegisterOnShutdown(stopStreams)

	var lc net.ListenConfig
	a.listener, err = lc.Listen(ctx, "tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr(), err)
	}

	return nil
}

// Addr returns the bound listen address.
func (a *App) Addr() string {
	return a.listener.Addr().String()
}

// Serve runs the HTTP server and the document store loop until ctx is
// cancelled or either fails, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.backend.Run(gctx); err != nil {
			return fmt.Errorf("document store: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.log.Info("http server listening", slog.String("addr", a.Addr()))
		if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down", slog.Duration("timeout", a.cfg.Server.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("server stopped")
	return nil
}

func (a *App) close() {
	if a.stopStreams != nil {
		a.stopStreams()
	}
	if a.listener != nil {
		_ = a.listener.Close()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.agg != nil {
		a.agg.Close()
	}
	if a.backend != nil {
		a.backend.Close()
	}
}
