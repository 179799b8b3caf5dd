// Package main is the entry point for the daily wisdom HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/events"
	"github.com/jsamuelsen/esoteric-daily/internal/adapters/http"
	"github.com/jsamuelsen/esoteric-daily/internal/adapters/http/handlers"
	"github.com/jsamuelsen/esoteric-daily/internal/bootstrap"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/config"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/telemetry"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Event stream and the daily workflow
	broker := events.NewBroker(0, logger)
	defer broker.Close()

	daily, err := bootstrap.Build(ctx, cfg, bootstrap.Options{
		Logger:     logger,
		Registerer: prometheus.DefaultRegisterer,
		Events:     broker,
	})
	if err != nil {
		return fmt.Errorf("building daily workflow: %w", err)
	}

	if keep := cfg.Cache.RetentionDays; keep > 0 {
		if _, err := daily.Service.Prune(ctx, keep); err != nil {
			logger.Warn("startup prune failed", slog.Any("error", err))
		}
	}

	// 6. Handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	buildInfo.Provider = cfg.Provider.Kind
	buildInfo.CacheDriver = cfg.Cache.Driver

	healthHandler := handlers.NewHealthHandler(daily.Health, buildInfo, daily.Service.CurrentDate)
	dailyHandler := handlers.NewDailyHandler(daily.Service, cfg.Tasks.HistoryLimit)

	// 7. HTTP server and router
	if cfg.App.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := http.New(&cfg.Server, logger)

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        logger,
		AppConfig:     &cfg.App,
		HealthHandler: healthHandler,
		DailyHandler:  dailyHandler,
		Events:        broker,
		Timeout:       cfg.Server.RequestTimeout,
	})

	serverErr, err := server.Start()
	if err != nil {
		_ = daily.Close(ctx)
		return err
	}

	// 8. Wait for a signal, then drain
	return waitForShutdown(ctx, logger, server, daily, serverErr, cfg.Server.ShutdownTimeout)
}

// waitForShutdown blocks until a signal or a server error, then stops the
// server, waits for background illustration tasks and closes the store.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	daily *bootstrap.App,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error

	select {
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown: %w", err)
	}

	if err := daily.Close(shutdownCtx); err != nil {
		logger.Warn("daily workflow did not close cleanly", slog.Any("error", err))
	}

	if runErr == nil {
		logger.Info("shutdown complete")
	}

	return runErr
}
