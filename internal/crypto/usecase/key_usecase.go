package usecase

import (
	"context"
	"sync"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// VaultKeyPurpose is the scope label bound as AAD when wrapping vault keys
// under the master key.
const VaultKeyPurpose = "vault"

// keyUseCase implements KeyUseCase.
//
// Rotation is guarded by rotateMu so a single rotation is in flight at a
// time; readers of the ring are never blocked because the current-key switch
// is a single atomic store inside the ring.
type keyUseCase struct {
	txManager    database.TxManager
	keyRepo      KeyRepository
	keyManager   cryptoService.KeyManager
	ring         *cryptoDomain.KeyRing
	staleCounter StaleRecordCounter

	rotateMu sync.Mutex
}

// NewKeyUseCase creates a new KeyUseCase with the provided dependencies.
// The staleCounter may be nil when no record store is wired (e.g., in the
// key-management CLI before the vault schema exists).
func NewKeyUseCase(
	txManager database.TxManager,
	keyRepo KeyRepository,
	keyManager cryptoService.KeyManager,
	ring *cryptoDomain.KeyRing,
	staleCounter StaleRecordCounter,
) KeyUseCase {
	return &keyUseCase{
		txManager:    txManager,
		keyRepo:      keyRepo,
		keyManager:   keyManager,
		ring:         ring,
		staleCounter: staleCounter,
	}
}

// Initialize creates the first vault key if the store is empty.
func (k *keyUseCase) Initialize(ctx context.Context) error {
	existing, err := k.keyRepo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	material, err := k.keyManager.GenerateKey(1, VaultKeyPurpose)
	if err != nil {
		return err
	}

	if err := k.keyRepo.Create(ctx, material); err != nil {
		return err
	}

	k.ring.Add(material)
	k.ring.SetCurrent(material.Version)
	return nil
}

// Load unwraps all persisted vault keys into the ring and marks the highest
// version as current. Fails if the store holds no keys.
func (k *keyUseCase) Load(ctx context.Context) error {
	materials, err := k.keyRepo.List(ctx)
	if err != nil {
		return err
	}
	if len(materials) == 0 {
		return cryptoDomain.ErrNoCurrentKey
	}

	for _, material := range materials {
		if err := k.keyManager.UnwrapKey(material); err != nil {
			return apperrors.Wrapf(err, "failed to unwrap vault key version %d", material.Version)
		}
		k.ring.Add(material)
	}

	// List is ordered by version descending; the newest key is current.
	k.ring.SetCurrent(materials[0].Version)
	return nil
}

// Rotate generates new key material, makes it current atomically, prunes
// versions beyond the history limit, and reports the re-encryption backlog.
//
// Old data stays decryptable until explicitly migrated: rotation is additive,
// and only pruning is destructive. The backlog in the report is what the
// re-encryption migration must clear before the stale versions retire.
func (k *keyUseCase) Rotate(ctx context.Context) (*RotationReport, error) {
	k.rotateMu.Lock()
	defer k.rotateMu.Unlock()

	current := k.ring.CurrentVersion()
	if current == 0 {
		return nil, cryptoDomain.ErrNoCurrentKey
	}

	material, err := k.keyManager.GenerateKey(current+1, VaultKeyPurpose)
	if err != nil {
		return nil, err
	}

	if err := k.keyRepo.Create(ctx, material); err != nil {
		return nil, err
	}

	// Readers observe the new current key only after it is fully persisted
	// and present in the ring.
	k.ring.Add(material)
	k.ring.SetCurrent(material.Version)

	retired := k.ring.Prune()
	err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		for _, version := range retired {
			if err := k.keyRepo.Delete(txCtx, version); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to delete retired key versions")
	}

	report := &RotationReport{
		NewVersion:      material.Version,
		RetiredVersions: retired,
	}

	if k.staleCounter != nil {
		counts, err := k.staleCounter.CountByKeyVersion(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to count records pending re-encryption")
		}
		delete(counts, material.Version)
		report.PendingReencryption = counts
	}

	return report, nil
}

// Backup seals the full in-memory key set under the passphrase.
func (k *keyUseCase) Backup(_ context.Context, passphrase string) ([]byte, error) {
	return k.keyManager.Backup(passphrase)
}

// Restore loads keys from a backup blob, re-wraps them under the master key,
// persists them atomically, and rebuilds the ring.
func (k *keyUseCase) Restore(ctx context.Context, blob []byte, passphrase string) error {
	materials, err := k.keyManager.Restore(blob, passphrase)
	if err != nil {
		return err
	}

	var highest uint
	err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		for _, material := range materials {
			if err := k.keyManager.WrapKey(material); err != nil {
				return err
			}
			if err := k.keyRepo.Create(txCtx, material); err != nil {
				return err
			}
			if material.Version > highest {
				highest = material.Version
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, material := range materials {
		k.ring.Add(material)
	}
	k.ring.SetCurrent(highest)
	return nil
}
