package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/allisson/credvault/internal/app"
	"github.com/allisson/credvault/internal/config"
)

// RunBackupKeys seals the full vault key set under the given passphrase and
// writes the resulting blob to outputPath. The backup is independent of the
// master key, so it survives a master key loss.
//
// Requirements: database migrated, MASTER_KEY configured, keys initialized.
func RunBackupKeys(ctx context.Context, writer io.Writer, passphrase, outputPath string) error {
	if passphrase == "" {
		return fmt.Errorf("--passphrase is required")
	}
	if outputPath == "" {
		return fmt.Errorf("--file is required")
	}

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

	blob, err := keyUseCase.Backup(ctx, passphrase)
	if err != nil {
		return fmt.Errorf("failed to create key backup: %w", err)
	}

	if err := os.WriteFile(outputPath, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}

	logger.Info("key backup written", slog.String("path", outputPath), slog.Int("size_bytes", len(blob)))
	_, _ = fmt.Fprintf(writer, "Key backup written to %s (%d bytes)\n", outputPath, len(blob))
	_, _ = fmt.Fprintln(writer, "Store the passphrase separately from the backup file.")

	return nil
}

// RunRestoreKeys loads vault keys from a passphrase-sealed backup file,
// re-wraps them under the configured master key, persists them, and rebuilds
// the in-memory ring. Fails without side effects on a wrong passphrase or a
// corrupted file.
//
// Requirements: database migrated and MASTER_KEY configured.
func RunRestoreKeys(ctx context.Context, writer io.Writer, passphrase, inputPath string) error {
	if passphrase == "" {
		return fmt.Errorf("--passphrase is required")
	}
	if inputPath == "" {
		return fmt.Errorf("--file is required")
	}

	blob, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	keyUseCase, err := container.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize key use case: %w", err)
	}

	if err := keyUseCase.Restore(ctx, blob, passphrase); err != nil {
		return fmt.Errorf("failed to restore keys from backup: %w", err)
	}

	version := container.KeyRing().CurrentVersion()
	logger.Info("keys restored from backup", slog.Uint64("current_version", uint64(version)))
	_, _ = fmt.Fprintf(writer, "Keys restored, current version: %d\n", version)

	return nil
}
