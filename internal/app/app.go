package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirelobby/internal/config"
	"github.com/vovakirdan/wirelobby/internal/core"
	transporthttp "github.com/vovakirdan/wirelobby/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	coord           *core.Coordinator
	rooms           *core.MemoryRoomStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rooms := core.NewRoomStore(core.StoreOptions{
		Capacity:      cfg.RoomCapacity,
		MinNameLength: cfg.MinNameLength,
		NameScope:     core.NameScope(cfg.NameScope),
		Codes:         core.RandomCodes(cfg.CodeLength),
	})
	coord := core.NewCoordinator(rooms, core.NewRegistry(), core.Options{
		MinNameLength: cfg.MinNameLength,
		LobbyLimit:    cfg.LobbyLimit,
		MaxChatLength: cfg.MaxChatLength,
		Logger:        logger,
	})
	server := transporthttp.NewServer(coord, cfg, logger)

	logger.Info().
		Int("room_capacity", cfg.RoomCapacity).
		Str("name_scope", cfg.NameScope).
		Int("lobby_limit", cfg.LobbyLimit).
		Msg("lobby initialized")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		coord:           coord,
		rooms:           rooms,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// cleanup stops the room workers.
func (a *App) cleanup() {
	stats := a.coord.Stats()
	a.rooms.Close()
	a.log.Info().
		Int("rooms", stats.Rooms).
		Int("connections", stats.Connections).
		Msg("room store closed")
}
