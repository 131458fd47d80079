// Package server wires the storage backend, the user store, the login gate
// and the HTTP API together and runs them until a shutdown signal.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/datahub/internal/blob"
	"github.com/dmitrijs2005/datahub/internal/logging"
	"github.com/dmitrijs2005/datahub/internal/server/auth"
	"github.com/dmitrijs2005/datahub/internal/server/config"
	"github.com/dmitrijs2005/datahub/internal/server/session"
	"github.com/dmitrijs2005/datahub/internal/server/store"

	hs "github.com/dmitrijs2005/datahub/internal/server/handler/http"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	backend blob.Backend
	store   *store.Store
	handler http.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("report timezone: %w", err)
	}

	s, backend, err := store.Open(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	res := s.Init(ctx, c.Admin)
	switch {
	case !res.Attempted:
		logger.Debug(ctx, "bootstrap admin not configured")
	case res.Err != nil:
		logger.Warn(ctx, "bootstrap admin failed", "email", res.Email, "error", res.Err)
	case res.Created:
		logger.Info(ctx, "bootstrap admin created", "email", res.Email, "id", res.UserID)
	default:
		logger.Info(ctx, "bootstrap admin present", "email", res.Email, "id", res.UserID)
	}

	remember := auth.NewRememberCodec(c.CookieSignKey, c.RememberDuration)
	if !remember.Signed() {
		logger.Warn(ctx, "no cookie signing key configured, remember-me tokens are unsigned")
	}

	gate := auth.NewGate(
		s,
		auth.NewRateLimiter(c.LoginMaxAttempts, c.LoginWindow),
		auth.NewVerifier(c),
		remember,
		logger.With("module", "auth"),
	)
	sessions := session.NewManager(c.SessionSecret, c.SessionIdleTimeout, logger)
	sessions.SetSecure(c.SecureCookies)

	h := hs.NewHandler(gate, sessions, s, logger, loc)
	h.SetSecureCookies(c.SecureCookies)

	return &App{config: c, logger: logger, backend: backend, store: s, handler: hs.NewRouter(h)}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.backend.Close(); err != nil {
		app.logger.Error(context.Background(), "storage close", "error", err)
	}
}
