package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/credvault/internal/app"
	"github.com/allisson/credvault/internal/config"
	cryptoUseCase "github.com/allisson/credvault/internal/crypto/usecase"
)

// RunServer starts the HTTP server with graceful shutdown support.
// Loads configuration, initializes the DI container, unwraps the vault keys
// into the in-memory ring, and starts the API and metrics servers plus the
// audit persistence worker and the optional key rotation loop. Blocks until
// receiving SIGINT/SIGTERM or encountering a fatal error.
func RunServer(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Load persisted vault keys into the key ring
	keyUseCase, err := container.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize key use case: %w", err)
	}
	if err := keyUseCase.Load(ctx); err != nil {
		return fmt.Errorf("failed to load vault keys: %w", err)
	}
	if container.KeyRing().CurrentVersion() == 0 {
		logger.Warn("no vault keys found, credential writes will fail until 'init-keys' is run")
	}

	// Get HTTP server from container (this initializes all dependencies)
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	// Get Metrics server from container
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	auditLogUseCase, err := container.AuditLogUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize audit log use case: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Audit persistence worker; drains on context cancellation.
	go auditLogUseCase.Start(ctx)

	// Scheduled key rotation, disabled when the interval is zero.
	if cfg.KeyRotationInterval > 0 {
		go runRotationLoop(ctx, keyUseCase, cfg.KeyRotationInterval, logger)
	}

	// Start servers in goroutines
	serverErr := make(chan error, 2)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		var shutdownErrors []error

		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}

		if len(shutdownErrors) > 0 {
			return errors.Join(shutdownErrors...)
		}
	case err := <-serverErr:
		// Attempt graceful shutdown if one server fails
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		var shutdownErrors []error
		shutdownErrors = append(shutdownErrors, err)

		if server != nil {
			if shutErr := server.Shutdown(shutdownCtx); shutErr != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", shutErr))
			}
		}

		if metricsServer != nil {
			if shutErr := metricsServer.Shutdown(shutdownCtx); shutErr != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", shutErr))
			}
		}

		return errors.Join(shutdownErrors...)
	}

	return nil
}

// runRotationLoop rotates the vault key on a fixed interval until the context
// is canceled. A failed rotation is logged and retried on the next tick; the
// previous key stays current, so serving traffic is never interrupted.
func runRotationLoop(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := keyUseCase.Rotate(ctx)
			if err != nil {
				logger.Error("scheduled key rotation failed", slog.Any("error", err))
				continue
			}
			logger.Info("vault key rotated",
				slog.Uint64("new_version", uint64(report.NewVersion)),
				slog.Int("retired_versions", len(report.RetiredVersions)),
				slog.Int("stale_versions", len(report.PendingReencryption)))
		}
	}
}
