// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/linkgraph/internal/api"
	"github.com/starford/linkgraph/internal/graph"
	"github.com/starford/linkgraph/internal/graphservice"
	"github.com/starford/linkgraph/internal/index"
	"github.com/starford/linkgraph/internal/mcpserver"
	"github.com/starford/linkgraph/internal/metrics"
	"github.com/starford/linkgraph/internal/sse"
	"github.com/starford/linkgraph/internal/storage"
)

// core is what both the HTTP server and the MCP server run on.
type core struct {
	cfg    *Config
	logger *slog.Logger
	db     *index.DB
	svc    *graphservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func setup(app *application, publisher graphservice.Publisher) (*core, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("journals_dir", cfg.Vault.JournalsDir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("journals", cfg.Graph.Journals),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	syncOpts := index.SyncOptions{JournalsDir: filepath.ToSlash(cfg.Vault.JournalsDir)}
	svc, err := graphservice.New(db, graphservice.Options{
		Settings:  graph.Settings{JournalsEnabled: cfg.Graph.Journals},
		CacheSize: cfg.Graph.CacheSize,
		Palette:   cfg.Graph.ColorPalette(),
		Decay:     cfg.Graph.DecayDistance,
		Sync: func(ctx context.Context) error {
			_, err := index.Sync(ctx, db, store, syncOpts, logger)
			return err
		},
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init graph service: %w", err)
	}

	return &core{cfg: cfg, logger: logger, db: db, svc: svc}, nil
}

// watch rebuilds the graph whenever vault changes settle.
func (c *core) watch(ctx context.Context, onChange func(paths []string)) error {
	return index.Watch(ctx, c.cfg.Vault.Path, c.cfg.Graph.ReloadDebounce, c.logger, func(ctx context.Context, paths []string) {
		if onChange != nil {
			onChange(paths)
		}
		if _, err := c.svc.Reload(ctx); err != nil {
			c.logger.Warn("reload after vault change failed", slog.String("error", err.Error()))
		}
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(app.config.Graph.EventThrottle)
	defer broker.Close()

	c, err := setup(app, broker)
	if err != nil {
		return err
	}
	defer c.db.Close()
	cfg, logger := c.cfg, c.logger

	// Build the first snapshot. A failure leaves the server up; the watcher
	// or POST /api/graph/reload can retry.
	if _, err := c.svc.Reload(ctx); err != nil {
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.svc.Snapshot(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"building"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; every settled burst is announced and rebuilt.
	g.Go(func() error {
		return c.watch(gCtx, broker.PublishVaultChange)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Returning an error cancels gCtx, which stops the watcher.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the graph tools over MCP stdio until stdin closes. The
// vault is watched in the background so answers follow edits.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	c, err := setup(app, nil)
	if err != nil {
		return err
	}
	defer c.db.Close()

	if _, err := c.svc.Reload(ctx); err != nil {
		c.logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := c.watch(watchCtx, nil); err != nil {
			c.logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	c.logger.Info("MCP server starting on stdio")
	return mcpserver.New(c.svc).ServeStdio()
}
