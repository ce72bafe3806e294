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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lexa/internal/api"
	"github.com/starford/lexa/internal/drill"
	"github.com/starford/lexa/internal/drillservice"
	"github.com/starford/lexa/internal/library"
	"github.com/starford/lexa/internal/mcpserver"
	"github.com/starford/lexa/internal/reminder"
	"github.com/starford/lexa/internal/sse"
	"github.com/starford/lexa/internal/storage"
	"github.com/starford/lexa/internal/store"
)

// runtime is the set of components every command needs.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	loc    *time.Location
	files  *storage.FS
	db     *store.DB
}

func (a *application) init() (*runtime, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("timezone", cfg.Session.Timezone),
		slog.String("log_level", cfg.App.LogLevel.String()))

	loc, err := cfg.Session.Location()
	if err != nil {
		return nil, fmt.Errorf("session timezone: %w", err)
	}

	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, loc: loc, files: files, db: db}, nil
}

// sync imports decks that changed on disk since the last run.
func (rt *runtime) sync(ctx context.Context) {
	rep, err := library.Sync(ctx, rt.db, rt.files, rt.logger)
	if err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
		return
	}
	rt.logger.Info("library synced",
		slog.Int("imported", len(rep.Imported)),
		slog.Int("removed", len(rep.Removed)),
		slog.Int("failed", len(rep.Failed)))
}

func (rt *runtime) service(events drillservice.Publisher) *drillservice.Service {
	engine := drill.NewEngine()
	if rt.cfg.Session.Seed != 0 {
		engine = drill.NewEngine(drill.WithSeed(rt.cfg.Session.Seed))
	}
	return drillservice.New(rt.db, engine,
		drillservice.WithFiles(rt.files),
		drillservice.WithPublisher(events),
		drillservice.WithLogger(rt.logger),
		drillservice.WithLocation(rt.loc),
		drillservice.WithGoal(rt.cfg.Session.Goal),
	)
}

// Run starts the HTTP server, library watcher and reminders with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	rt, err := app.init()
	if err != nil {
		return err
	}
	defer rt.db.Close()
	cfg, logger := rt.cfg, rt.logger

	rt.sync(ctx)

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := rt.service(broker)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := rt.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Persistence worker. Drains queued writes after gCtx is cancelled.
	g.Go(func() error {
		return svc.Run(gCtx)
	})

	if cfg.Library.Watch {
		g.Go(func() error {
			err := library.Watch(gCtx, rt.db, rt.files, logger, func(kind, path string) {
				broker.PublishDeckEvent(kind, path)
				svc.LibraryChanged(gCtx)
			})
			if err != nil {
				logger.Warn("library watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if cfg.Reminders.Enabled {
		rem := reminder.New(svc, broker, cfg.Reminders.Interval, rt.loc, logger)
		if err := rem.Start(gCtx); err != nil {
			return err
		}
		defer rem.Stop()
	}

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context once shutdown starts so the
// background workers stop too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the drill tools over stdio until the client disconnects.
// Logs go to stderr unless WithLogOutput says otherwise, as stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}

	rt, err := app.init()
	if err != nil {
		return err
	}
	defer rt.db.Close()

	rt.sync(ctx)

	ctx, cancel := context.WithCancel(ctx)
	svc := rt.service(nil)
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	rt.logger.Info("MCP server starting on stdio")
	serveErr := mcpserver.New(svc).ServeStdio()

	cancel()
	if err := <-done; err != nil {
		rt.logger.Error("persist worker error", slog.String("error", err.Error()))
	}
	return serveErr
}

// Import reads one deck file, copies it into the library and imports it into the store.
func Import(ctx context.Context, path string, opts ...Option) (*library.Imported, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	rt, err := app.init()
	if err != nil {
		return nil, err
	}
	defer rt.db.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}
	imp, err := rt.service(nil).ImportDeck(ctx, path, data)
	if err != nil {
		return nil, err
	}
	rt.logger.Info("deck imported",
		slog.String("path", imp.Path),
		slog.String("group_id", imp.GroupID),
		slog.Int("added", imp.Added),
		slog.Int("updated", imp.Updated))
	return imp, nil
}
