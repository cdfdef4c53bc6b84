package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/studio-engine/internal/api"
	"github.com/terra-clan/studio-engine/internal/catalog"
	"github.com/terra-clan/studio-engine/internal/cleanup"
	"github.com/terra-clan/studio-engine/internal/config"
	"github.com/terra-clan/studio-engine/internal/contact"
	"github.com/terra-clan/studio-engine/internal/events"
	"github.com/terra-clan/studio-engine/internal/health"
	"github.com/terra-clan/studio-engine/internal/metrics"
	"github.com/terra-clan/studio-engine/internal/session"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting studio-engine",
		"version", Version,
		"addr", cfg.Server.Addr(),
		"storage", cfg.Storage.Driver,
		"sessions", cfg.Sessions.Store,
		"submitter", cfg.Booking.Submitter,
	)

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	defer initCancel()

	cat, err := catalog.Load(cfg.Catalog.Dir)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	slog.Info("catalog loaded", "counts", cat.Stats())

	hub := events.NewHub(
		events.WithBufferSize(cfg.Events.BufferSize),
		events.WithSubscriberHook(metrics.UpdateWebsocketClients),
	)

	repo, err := openRepository(initCtx, cfg, hub)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer repo.Close()
	slog.Info("database connected", "driver", cfg.Storage.Driver)

	store, err := openSessionStore(initCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	registry := health.NewRegistry()
	registry.Register("repository", health.CheckerFunc(repo.Ping))
	registry.Register("sessions", store)

	if cfg.Storage.Driver == config.DriverPostgres && cfg.Events.ListenPostgres {
		listener, err := events.NewPGListener(cfg.Storage.PostgresDSN, hub)
		if err != nil {
			return fmt.Errorf("failed to start notification listener: %w", err)
		}
		defer listener.Close()
		registry.Register("listener", listener)
		go listener.Run(ctx)
	}

	manager := session.NewManager(store, cat,
		session.WithTTL(cfg.Sessions.TTL),
		session.WithSubmitter(newSubmitter(cfg, repo)),
		session.WithSubmitTimeout(cfg.Booking.SubmitTimeout),
		session.WithPublisher(hub),
	)

	cleaner := cleanup.NewCleaner(manager, cfg.Cleanup.Interval)
	cleaner.Start(ctx)

	server := api.NewServer(cfg.Server, api.Deps{
		Catalog:  cat,
		Sessions: manager,
		Contact:  contact.NewService(cat, repo),
		Repo:     repo,
		Hub:      hub,
		Health:   registry,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	slog.Info("shutting down gracefully...")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	<-cleaner.Done()

	// Let in-flight submissions record their outcome before storage closes
	if err := manager.WaitContext(shutdownCtx); err != nil {
		slog.Warn("shutdown timeout reached with submissions in flight", "error", err)
	}

	slog.Info("studio-engine stopped")
	return nil
}
