// cmd/service/main.go
package main

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

	"repolens/internal/api"
	"repolens/internal/config"
	"repolens/internal/github"
	"repolens/internal/insights"
	"repolens/internal/quota"
	"repolens/internal/tools"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize application components
	tracker := quota.NewTracker(logger)
	ghClient := github.NewClient(cfg.GithubToken, tracker, logger)
	ghClient.SetHTTPTimeout(cfg.HTTPTimeout)
	if cfg.GithubAPIURL != "" {
		if err := ghClient.SetAPIBaseURL(cfg.GithubAPIURL); err != nil {
			return fmt.Errorf("invalid GITHUB_API_URL: %w", err)
		}
	}
	service := insights.NewService(ghClient, logger, cfg.ProfileBatchSize, cfg.ProfileBatchDelay)

	registry := tools.NewRegistry(logger)
	tools.RegisterAll(registry, service)

	apiHandler := api.NewHandler(registry, logger, cfg.ResponseCharBudget)
	throttle := api.NewThrottle(cfg.ServerRatePerSec, cfg.ServerRateBurst, logger)
	defer throttle.Close()

	// 5. Apply config file changes without a restart
	config.Watch(logger, func(next *config.Config) {
		setLogLevel(next.LogLevel, logLevel)
		service.SetBatchTuning(next.ProfileBatchSize, next.ProfileBatchDelay)
		apiHandler.SetCharBudget(next.ResponseCharBudget)
	})

	// 6. Serve until the shutdown signal
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           apiHandler.Router(throttle),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.ListenAddr, "authenticated", ghClient.Authenticated())
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received. Exiting.")

	// Allow in-flight tool calls to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
