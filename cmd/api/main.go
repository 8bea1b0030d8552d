package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-appointment-bot/cmd/mainconfig"
	"github.com/wolfman30/clinic-appointment-bot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-appointment-bot/internal/config"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

func main() {
	// .env is optional outside development.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic appointment API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"booking_store", cfg.BookingStore,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := connectDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	app, err := bootstrap.BuildApp(ctx, cfg, deps, logger)
	if err != nil {
		logger.Error("failed to build app", "error", err)
		os.Exit(1)
	}
	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start workers", "error", err)
		os.Exit(1)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	app.Close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// connectDependencies opens the optional external clients named in config.
// The returned cleanup closes whatever was opened.
func connectDependencies(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (bootstrap.Dependencies, func(), error) {
	var deps bootstrap.Dependencies
	closers := []func(){}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if usesSES(cfg) {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return deps, cleanup, fmt.Errorf("load AWS config: %w", err)
		}
		deps.AWS = &awsCfg
	}

	if client := bootstrap.BuildRedisClient(ctx, cfg, logger, true); client != nil {
		deps.Redis = client
		closers = append(closers, func() { _ = client.Close() })
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		cleanup()
		return deps, func() {}, err
	}
	if pool != nil {
		deps.Postgres = pool
		closers = append(closers, pool.Close)
	}

	if deps.Sheets, err = bootstrap.BuildSheetsService(ctx, cfg); err != nil {
		cleanup()
		return deps, func() {}, err
	}
	if deps.Calendar, err = bootstrap.BuildCalendarService(ctx, cfg); err != nil {
		cleanup()
		return deps, func() {}, err
	}
	return deps, cleanup, nil
}

func usesSES(cfg *appconfig.Config) bool {
	switch cfg.EmailProvider {
	case "ses":
		return true
	case "auto", "":
		return cfg.SESFromEmail != ""
	default:
		return false
	}
}

