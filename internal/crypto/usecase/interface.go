// Package usecase implements business logic orchestration for vault key
// lifecycle operations: initialization, loading, rotation, pruning, and
// disaster-recovery backup/restore.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// KeyRepository defines the interface for vault key persistence.
//
// Keys are stored wrapped under the master key; plaintext key material never
// reaches the repository. Implementations support transaction context via
// database.GetTx and must return keys ordered by version descending.
type KeyRepository interface {
	// Create stores a new wrapped vault key.
	Create(ctx context.Context, material *cryptoDomain.KeyMaterial) error

	// List retrieves all wrapped vault keys ordered by version descending
	// (newest first).
	List(ctx context.Context) ([]*cryptoDomain.KeyMaterial, error)

	// Delete removes a retired key version. Destructive: any ciphertext
	// still referencing the version becomes permanently unreadable.
	Delete(ctx context.Context, version uint) error
}

// StaleRecordCounter reports how many live records still reference each
// non-current key version. Implemented by the credential repository; used by
// rotation to report the re-encryption backlog.
type StaleRecordCounter interface {
	CountByKeyVersion(ctx context.Context) (map[uint]int64, error)
}

// RotationReport describes the outcome of a key rotation.
type RotationReport struct {
	// NewVersion is the version now current for new encryptions.
	NewVersion uint
	// RetiredVersions lists versions pruned beyond the history limit.
	RetiredVersions []uint
	// PendingReencryption maps stale key versions to the number of live
	// records still encrypted under them. These records must be re-encrypted
	// before their version falls out of the history window.
	PendingReencryption map[uint]int64
}

// KeyUseCase defines the business logic for the vault key lifecycle.
type KeyUseCase interface {
	// Initialize creates and persists the first vault key (version 1) if no
	// keys exist yet. Idempotent: a populated store is left untouched.
	Initialize(ctx context.Context) error

	// Load reads all persisted vault keys, unwraps them with the master key,
	// and populates the in-memory key ring. Called once at startup.
	Load(ctx context.Context) error

	// Rotate generates a new key version, makes it current atomically, and
	// prunes versions beyond the history limit. Serialized: only one
	// rotation is in flight at a time. The report names the records that
	// still need re-encryption.
	Rotate(ctx context.Context) (*RotationReport, error)

	// Backup seals the full key set under a passphrase for disaster recovery.
	Backup(ctx context.Context, passphrase string) ([]byte, error)

	// Restore loads keys from a backup blob, re-wraps them under the master
	// key, persists them, and rebuilds the ring. Fails without side effects
	// on a wrong passphrase or corrupted blob.
	Restore(ctx context.Context, blob []byte, passphrase string) error
}
