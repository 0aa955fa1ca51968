// Package main provides the entry point for the app password service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sipico/apptokens/internal/activity"
	"github.com/sipico/apptokens/internal/api"
	"github.com/sipico/apptokens/internal/apptoken"
	"github.com/sipico/apptokens/internal/auth"
	"github.com/sipico/apptokens/internal/config"
	"github.com/sipico/apptokens/internal/credential"
	"github.com/sipico/apptokens/internal/metrics"
	"github.com/sipico/apptokens/internal/session"
	"github.com/sipico/apptokens/internal/storage"
)

// cleanupInterval is how often expired sessions and their tokens are purged.
const cleanupInterval = 5 * time.Minute

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// components holds everything run needs.
type components struct {
	cfg            *config.Config
	logger         *slog.Logger
	logLevel       *slog.LevelVar
	store          *storage.SQLiteStorage
	sessions       *session.Store
	registry       *prometheus.Registry
	mainRouter     chi.Router
	internalRouter chi.Router
}

// parseLogLevel maps LOG_LEVEL to a slog level.
func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// newNotifier selects the activity backend.
func newNotifier(cfg *config.Config, logger *slog.Logger) activity.Notifier {
	var next activity.Notifier = activity.Disabled{}
	if cfg.ActivityEnabled {
		next = activity.NewLogPublisher(logger.With("component", "activity"))
	}
	return activity.NewCounting(next)
}

// initializeComponents builds storage, metrics and routers from cfg.
func initializeComponents(cfg *config.Config) (*components, error) {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logLevel := new(slog.LevelVar)
	logLevel.Set(level)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	store, err := storage.New(cfg.DatabasePath, cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := auth.Bootstrap(context.Background(), store, cfg.BootstrapUser, cfg.BootstrapPassword, logger); err != nil {
		_ = store.Close() //nolint:errcheck
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Init(registry); err != nil {
		_ = store.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	sessions := session.NewStore(cfg.SessionTimeout)
	manager := apptoken.NewManager(store, session.Context{}, credential.NewGenerator(), newNotifier(cfg, logger), logger.With("component", "apptoken"))
	handler := api.NewHandler(store, manager, sessions, logLevel, logger)

	return &components{
		cfg:            cfg,
		logger:         logger,
		logLevel:       logLevel,
		store:          store,
		sessions:       sessions,
		registry:       registry,
		mainRouter:     handler.NewRouter(),
		internalRouter: handler.NewInternalRouter(metrics.HandlerFor(registry)),
	}, nil
}

// cleanup purges expired sessions and session tokens idle past the timeout.
func (c *components) cleanup(ctx context.Context) {
	removed := c.sessions.Cleanup(ctx)

	n, err := c.store.DeleteStaleSessionTokens(ctx, time.Now().Add(-c.sessions.Timeout()))
	if err != nil {
		c.logger.Error("failed to delete stale session tokens", "error", err)
		return
	}
	if removed > 0 || n > 0 {
		c.logger.Debug("expired sessions purged", "sessions", removed, "tokens", n)
	}
}

// runCleanup calls cleanup every interval until ctx is done.
func (c *components) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// run starts the servers and blocks until ctx is cancelled or a server fails.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = c.store.Close() }()

	return c.serve(ctx)
}

// serve runs the public and internal listeners until ctx is done.
func (c *components) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.runCleanup(ctx, cleanupInterval)

	servers := []*http.Server{
		{Addr: c.cfg.ListenAddr, Handler: c.mainRouter, ReadHeaderTimeout: 10 * time.Second},
		{Addr: c.cfg.MetricsListenAddr, Handler: c.internalRouter, ReadHeaderTimeout: 10 * time.Second},
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			c.logger.Info("listening", "addr", srv.Addr, "version", metrics.Version)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server on %s failed: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	c.logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("shutdown failed", "addr", srv.Addr, "error", err)
		}
	}

	return runErr
}

// runHealthCheck performs an HTTP health check against the local server.
// Returns 0 on success, 1 on failure. Used by container HEALTHCHECK.
func runHealthCheck() int {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return doHealthCheck("http://" + addr + "/health")
}

// doHealthCheck performs the actual health check HTTP request.
func doHealthCheck(url string) int {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func main() {
	// Handle health check subcommand for distroless container health checks
	if len(os.Args) > 1 && os.Args[1] == "health" {
		os.Exit(runHealthCheck())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
