package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmynk/fintrack/internal/adapter"
	"github.com/mmynk/fintrack/internal/backend"
	"github.com/mmynk/fintrack/internal/config"
	"github.com/mmynk/fintrack/internal/metrics"
	"github.com/mmynk/fintrack/internal/web"
	"github.com/mmynk/fintrack/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	m := metrics.New()

	var newAdapter func() adapter.Adapter
	var local *backend.Backend
	if cfg.Backend.URL != "" {
		httpClient := &http.Client{}
		newAdapter = func() adapter.Adapter {
			return adapter.NewRemote(httpClient, cfg.Backend, logger)
		}
		slog.Info("Using remote backend", "url", cfg.Backend.URL, "project_id", cfg.Backend.ProjectID)
	} else {
		local, err = backend.Open(cfg, backend.WithMetrics(m), backend.WithLogger(logger))
		if err != nil {
			slog.Error("Failed to initialize backend", "error", err)
			os.Exit(1)
		}
		newAdapter = func() adapter.Adapter {
			return adapter.NewLocal(local, logger)
		}
		slog.Info("Using in-process backend", "driver", cfg.DBDriver)
	}

	clients := web.NewRegistry(newAdapter, cfg.SessionTTL, cfg.NotifyTTL, m, logger)
	srv := web.NewServer(clients, cfg.SessionTTL, m, logger)

	server := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go clients.Run(ctx)
	go func() {
		slog.Info("Web server starting", "address", cfg.WebAddr, "auth_domain", cfg.Backend.AuthDomain)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
	clients.Close()
	if local != nil {
		if err := local.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}
}
