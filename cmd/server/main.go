package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/piipreview/internal/config"
	"github.com/JonMunkholm/piipreview/internal/extractor"
	"github.com/JonMunkholm/piipreview/internal/logging"
	"github.com/JonMunkholm/piipreview/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"extractor_url", cfg.Extractor.URL,
		"extractor_timeout", cfg.Extractor.Timeout,
		"extractor_max_concurrent", cfg.Extractor.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("configuration", "config", cfg.String())

	limiter := extractor.NewLimiter(cfg.Extractor.MaxConcurrent, cfg.Extractor.MaxWaitTime)
	client := extractor.New(extractor.Options{
		URL:       cfg.Extractor.URL,
		FieldName: cfg.Extractor.FieldName,
		Timeout:   cfg.Extractor.Timeout,
	}, nil, limiter, logger.With("component", "extractor"))

	server := web.NewServer(cfg, client, limiter)

	// Cancelled on shutdown to stop the session janitor
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for extractions to complete", "active", status.Active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown did not complete cleanly", "error", err)
		}
	}()

	if err := server.Start(jobCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}

	// ListenAndServe returns as soon as Shutdown begins
	<-shutdownDone
	slog.Info("server stopped")
}
