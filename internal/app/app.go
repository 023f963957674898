package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/ephroom/internal/config"
	"github.com/vovakirdan/ephroom/internal/core"
	"github.com/vovakirdan/ephroom/internal/metrics"
	"github.com/vovakirdan/ephroom/internal/store"
	"github.com/vovakirdan/ephroom/internal/store/memory"
	redisstore "github.com/vovakirdan/ephroom/internal/store/redis"
	transporthttp "github.com/vovakirdan/ephroom/internal/transport/http"
)

// App wires together store, core and transport layers.
type App struct {
	server          *transporthttp.Server
	shutdownTimeout time.Duration
	engine          *core.Engine
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("store", cfg.Store).Msg("store initialized")

	m := metrics.New()
	registry := core.NewRegistry(st, cfg.RoomTTL)
	engine := core.NewEngine(registry, st, core.NewDirectory(), m, logger)
	server := transporthttp.NewServer(engine, registry, m, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		engine:          engine,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case store.BackendMemory:
		return memory.New(), nil
	case store.BackendRedis:
		return redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

// Run subscribes to room traffic, starts the HTTP server and blocks until
// context cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	deliveries, err := a.engine.Listen(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to rooms: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Hijacked websocket connections are not tracked by Shutdown, so they
	// inherit gctx and end with it.
	a.server.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		return a.engine.Run(gctx, deliveries)
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Sockets end with ctx; their room cleanup needs the store still open.
		if err := a.server.WaitSessions(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("realtime connections did not finish before shutdown timeout")
		}
		return nil
	})

	return g.Wait()
}

// cleanup closes the store and ends any remaining subscription.
func (a *App) cleanup() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
		return
	}
	a.log.Info().Msg("store closed")
}
