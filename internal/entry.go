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
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/daymark/internal/api"
	"github.com/starford/daymark/internal/index"
	"github.com/starford/daymark/internal/mcpserver"
	"github.com/starford/daymark/internal/sse"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	st, err := Open(opts...)
	if err != nil {
		return err
	}
	defer st.Close()

	cfg, logger := st.Config, st.Logger

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(st.Days, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := st.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	var sched *cron.Cron
	if spec := cfg.Sync.ReconcileCron; spec != "" {
		if sched, err = reconcileScheduler(st, spec, broker); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := index.Watch(gCtx, st.DB, st.Store, cfg.Vault.Path, logger, broker.PublishPageEvent); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	if sched != nil {
		sched.Start()
		g.Go(func() error {
			<-gCtx.Done()
			<-sched.Stop().Done()
			return nil
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Unblocks the watcher and the reconcile job.
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

// reconcileScheduler runs a periodic vault sync that catches changes the
// watcher missed and tells stream clients when day maps went stale.
func reconcileScheduler(st *Stack, spec string, broker *sse.Broker) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(st.Days.Dates().Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(spec, func() {
		stats, err := st.Reconcile()
		if err != nil {
			st.Logger.Warn("reconcile failed", slog.String("error", err.Error()))
		}
		if stats.Changed() {
			st.Logger.Info("reconcile picked up changes",
				slog.Int("indexed", stats.Indexed),
				slog.Int("removed", stats.Removed))
			broker.PublishDaysChanged()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile %q: %w", spec, err)
	}
	return c, nil
}

// RunMCP serves the MCP tools on stdio while the watcher keeps the index fresh.
func RunMCP(ctx context.Context, opts ...Option) error {
	st, err := Open(opts...)
	if err != nil {
		return err
	}
	defer st.Close()

	stop := startWatcher(ctx, st, nil)
	defer stop()

	st.Logger.Info("MCP server starting on stdio")
	return mcpserver.New(st.Days).ServeStdio()
}

// startWatcher runs the vault watcher in the background. The returned stop
// cancels it and waits for it to exit, so it must run before the stack closes.
func startWatcher(ctx context.Context, st *Stack, cb index.EventCallback) (stop func()) {
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := index.Watch(watchCtx, st.DB, st.Store, st.Config.Vault.Path, st.Logger, cb); err != nil {
			st.Logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
