package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/credvault/internal/app"
	"github.com/allisson/credvault/internal/config"
)

// RunInitKeys creates the first vault key if the key store is empty.
// Idempotent: running it against a populated store is a no-op.
//
// Requirements: database migrated and MASTER_KEY configured.
func RunInitKeys(ctx context.Context, writer io.Writer) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	keyUseCase, err := container.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize key use case: %w", err)
	}

	if err := keyUseCase.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize vault keys: %w", err)
	}

	// Initialize is a no-op on a populated store; load the ring to report
	// the actual current version.
	if container.KeyRing().CurrentVersion() == 0 {
		if err := keyUseCase.Load(ctx); err != nil {
			return fmt.Errorf("failed to load vault keys: %w", err)
		}
	}

	version := container.KeyRing().CurrentVersion()
	logger.Info("vault keys initialized", slog.Uint64("current_version", uint64(version)))
	_, _ = fmt.Fprintf(writer, "Vault keys ready, current version: %d\n", version)

	return nil
}

// RunRotateKeys generates a new vault key version, makes it current, and
// prunes versions beyond the history limit. Prints the re-encryption backlog
// so operators know how many records still reference stale versions.
//
// Requirements: database migrated, MASTER_KEY configured, keys initialized.
func RunRotateKeys(ctx context.Context, writer io.Writer) error {
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

	report, err := keyUseCase.Rotate(ctx)
	if err != nil {
		return fmt.Errorf("failed to rotate vault keys: %w", err)
	}

	logger.Info("vault key rotated", slog.Uint64("new_version", uint64(report.NewVersion)))

	_, _ = fmt.Fprintf(writer, "New current key version: %d\n", report.NewVersion)
	if len(report.RetiredVersions) > 0 {
		_, _ = fmt.Fprintf(writer, "Retired key versions: %v\n", report.RetiredVersions)
	}
	if len(report.PendingReencryption) == 0 {
		_, _ = fmt.Fprintln(writer, "No records pending re-encryption.")
		return nil
	}

	_, _ = fmt.Fprintln(writer, "Records pending re-encryption per stale key version:")
	for version, count := range report.PendingReencryption {
		_, _ = fmt.Fprintf(writer, "  version %d: %d record(s)\n", version, count)
	}
	_, _ = fmt.Fprintln(writer, "Run 'reencrypt-credentials' to migrate them to the current version.")

	return nil
}
