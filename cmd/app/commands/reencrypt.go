package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/credvault/internal/app"
	"github.com/allisson/credvault/internal/config"
)

// RunReencryptCredentials walks credentials encrypted under stale key
// versions and re-encrypts them with the current vault key, in batches with
// bounded parallelism. Safe to interrupt and re-run: each record migrates in
// its own transaction.
//
// Requirements: database migrated, MASTER_KEY configured, keys initialized.
func RunReencryptCredentials(ctx context.Context, writer io.Writer, batchSize, workers int) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	keyUseCase, err := container.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize key use case: %w", err)
	}
	if err := keyUseCase.Load(ctx); err != nil {
		return fmt.Errorf("failed to load vault keys: %w", err)
	}

	credentialUseCase, err := container.CredentialUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize credential use case: %w", err)
	}

	report, err := credentialUseCase.Reencrypt(ctx, batchSize, workers)
	if err != nil {
		return fmt.Errorf("failed to re-encrypt credentials: %w", err)
	}

	logger.Info("re-encryption completed",
		slog.Int64("scanned", report.Scanned),
		slog.Int64("migrated", report.Migrated))

	_, _ = fmt.Fprintf(writer, "Scanned:  %d record(s)\n", report.Scanned)
	_, _ = fmt.Fprintf(writer, "Migrated: %d record(s)\n", report.Migrated)

	return nil
}
