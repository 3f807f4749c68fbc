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

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/curator"
	"github.com/starford/quire/internal/directive"
	"github.com/starford/quire/internal/generation"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/store"
	"github.com/starford/quire/internal/templates"
	"github.com/starford/quire/internal/tools"
	"github.com/starford/quire/internal/workflow"
)

// App is the wired set of components shared by every command.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	DB      *store.DB
	Vault   storage.Provider
	Loader  *templates.Loader
	Catalog *tools.Catalog
	Broker  *sse.Broker
	Runner  *workflow.Runner
	Curator *curator.Curator
}

// NewApp opens the store and vault and wires the pipeline. Callers must
// Close the returned App.
func NewApp(opts ...Option) (*App, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	logger := a.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("vault_name", cfg.Vault.Name),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("templates_dir", cfg.Templates.SystemDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	vault, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	backend := a.backend
	if backend == nil {
		backend = generation.Echo{}
	}

	broker := sse.NewBroker(500 * time.Millisecond)
	reg := directive.NewDefaultRegistry()
	catalog := tools.Builtin(vault)
	loader := templates.NewLoader(cfg.Templates.SystemDir)
	p := pipeline.New(reg, db, db, backend,
		pipeline.WithEvents(broker),
		pipeline.WithLogger(logger))

	week := cfg.Pipeline.Weekday()
	return &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Vault:   vault,
		Loader:  loader,
		Catalog: catalog,
		Broker:  broker,
		Runner: &workflow.Runner{
			Loader:       loader,
			Pipeline:     p,
			Registry:     reg,
			State:        db,
			Vault:        vault,
			VaultName:    cfg.Vault.Name,
			Subdir:       cfg.Templates.WorkflowsDir,
			Tools:        catalog,
			WeekStart:    week,
			RecentRuns:   cfg.Pipeline.DefaultRecentRuns,
			PendingLimit: cfg.Pipeline.DefaultPendingLimit,
			Model:        cfg.Pipeline.DefaultModel,
			Timeout:      cfg.Pipeline.Timeout,
			Logger:       logger,
		},
		Curator: &curator.Curator{
			Loader:     loader,
			Pipeline:   p,
			Vault:      vault,
			VaultName:  cfg.Vault.Name,
			Subdir:     cfg.Templates.ContextDir,
			Tools:      catalog,
			WeekStart:  week,
			RecentRuns: cfg.Pipeline.DefaultRecentRuns,
			Model:      cfg.Pipeline.DefaultModel,
			Timeout:    cfg.Pipeline.Timeout,
			Logger:     logger,
		},
	}, nil
}

// Close stops the broker and closes the store.
func (a *App) Close() error {
	a.Broker.Close()
	return a.DB.Close()
}

// templateDirs lists the directories the template watcher follows.
func (a *App) templateDirs() []string {
	return []string{
		a.Config.Templates.SystemDir,
		filepath.Join(a.Config.Vault.Path, filepath.FromSlash(a.Config.Templates.WorkflowsDir)),
		filepath.Join(a.Config.Vault.Path, filepath.FromSlash(a.Config.Templates.ContextDir)),
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := NewApp(opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	logger := app.Logger

	apiRouter := api.NewRouter(app.Runner, app.Curator, cfg.Auth.AuthEnabled(), cfg.Auth.Token, app.Broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := app.DB.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch template dirs; changes drop memoised templates and reach SSE clients.
	g.Go(func() error {
		if err := app.Loader.Watch(gCtx, logger, app.Broker.TemplateChanged, app.templateDirs()...); err != nil {
			logger.Warn("template watcher failed", slog.String("error", err.Error()))
		}
		return nil
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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs must not go to stdout here; pass WithLogger with a stderr handler.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := NewApp(opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Logger.Info("MCP server starting on stdio")
	srv := mcpserver.New(app.Runner, app.Catalog)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
