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

	"golang.org/x/sync/errgroup"

	"github.com/starford/mockbox/internal/entityservice"
	"github.com/starford/mockbox/internal/health"
	"github.com/starford/mockbox/internal/journal"
	"github.com/starford/mockbox/internal/mcpserver"
	"github.com/starford/mockbox/internal/sse"
	"github.com/starford/mockbox/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// components are the long-lived pieces shared by the HTTP and MCP entry
// points.
type components struct {
	store   *storage.FS
	svc     *entityservice.Service
	journal *journal.DB
}

func (c *components) close() {
	if c.journal != nil {
		_ = c.journal.Close()
	}
}

// buildComponents opens the document and, when enabled, the journal, then
// loads the document. observers receive every applied change.
func buildComponents(ctx context.Context, cfg *Config, logger *slog.Logger, observers ...entityservice.Observer) (*components, error) {
	store, err := storage.NewFS(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	c := &components{store: store}

	opts := []entityservice.Option{entityservice.WithLogger(logger)}
	if cfg.Journal.Enabled {
		c.journal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		opts = append(opts, entityservice.WithObserver(c.journal))
	}
	for _, o := range observers {
		opts = append(opts, entityservice.WithObserver(o))
	}

	c.svc = entityservice.New(store, opts...)
	if err := c.svc.Initialize(ctx); err != nil {
		c.close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	return c, nil
}

// watch reloads the document after external edits until ctx is done. A
// watcher that cannot start is logged, not fatal.
func watch(ctx context.Context, c *components, logger *slog.Logger) error {
	err := storage.Watch(ctx, c.store.Path(), logger, storage.DefaultDebounce, func() {
		if _, err := c.svc.Reload(ctx); err != nil {
			logger.Warn("store: reload skipped", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		logger.Error("watcher: failed", slog.String("error", err.Error()))
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}
	logger, closeLog, err := newLogger(cfg.App, out)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.Bool("journal", cfg.Journal.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(0)
	defer broker.Close()

	c, err := buildComponents(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.close()

	checker := health.NewChecker(func() bool {
		return c.svc.Stats(context.Background()).Initialized
	})

	handler, err := newRouter(routerDeps{
		Service:        c.svc,
		Health:         checker,
		Events:         broker,
		Journal:        c.journal,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			return watch(gCtx, c, logger)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		// SSE streams only end when the broker closes them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
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

// errShutdown cancels the group's context once shutdown begins so that
// background workers stop with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the document over MCP on stdin/stdout until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger, closeLog, err := newLogger(cfg.App, out)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	c, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	srv := mcpserver.New(c.svc, c.journal, health.Version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	if cfg.Watch.Enabled {
		g.Go(func() error {
			return watch(gCtx, c, logger)
		})
	}
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server starting", slog.String("store_path", c.store.Path()))
		return srv.ServeStdio()
	})

	return g.Wait()
}
