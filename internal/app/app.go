// Package app wires configuration, storage, services, and the HTTP
// transport into one runnable unit.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/avoronkov/vcadmin/internal/audit"
	"github.com/avoronkov/vcadmin/internal/auth"
	"github.com/avoronkov/vcadmin/internal/config"
	"github.com/avoronkov/vcadmin/internal/events"
	"github.com/avoronkov/vcadmin/internal/premod"
	"github.com/avoronkov/vcadmin/internal/register"
	transporthttp "github.com/avoronkov/vcadmin/internal/transport/http"
)

// App owns the HTTP server and the resources behind it.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           *audit.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	store, err := audit.New(cfg.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("init audit store: %w", err)
	}
	logger.Info().Str("audit_path", cfg.AuditPath).Msg("audit store initialized")

	queue := premod.NewQueue(cfg.QueuePath)
	bus := events.NewBus()
	reg := register.New(cfg, queue, store, bus, logger)

	authService := auth.NewService(cfg.Admin.PasswordHash, &auth.JWTConfig{
		Secret:   []byte(cfg.Admin.JWTSecret),
		Issuer:   cfg.Admin.JWTIssuer,
		Audience: cfg.Admin.JWTAudience,
		TTL:      cfg.Admin.TokenTTL,
	})

	server := transporthttp.NewServer(reg, authService, store, bus, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
		store:           store,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()
		err := a.server.Shutdown(shutdownCtx)
		a.cleanup()
		return err
	}
}

func (a *App) cleanup() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing audit store")
	}
}
