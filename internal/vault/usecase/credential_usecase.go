package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	appValidation "github.com/allisson/credvault/internal/validation"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// credentialUseCase implements CredentialUseCase.
type credentialUseCase struct {
	txManager      database.TxManager
	credentialRepo CredentialRepository
	keyManager     cryptoService.KeyManager
	accessControl  AccessControl
	ring           *cryptoDomain.KeyRing
	logger         *slog.Logger
}

// NewCredentialUseCase creates a new credential use case instance.
func NewCredentialUseCase(
	txManager database.TxManager,
	credentialRepo CredentialRepository,
	keyManager cryptoService.KeyManager,
	accessControl AccessControl,
	ring *cryptoDomain.KeyRing,
	logger *slog.Logger,
) CredentialUseCase {
	return &credentialUseCase{
		txManager:      txManager,
		credentialRepo: credentialRepo,
		keyManager:     keyManager,
		accessControl:  accessControl,
		ring:           ring,
		logger:         logger,
	}
}

func validateCreateCredentialInput(input CreateCredentialInput) error {
	err := validation.Errors{
		"type": validation.Validate(input.Type,
			validation.Required.Error("type is required"),
			validation.In(
				string(vaultDomain.CredentialTypePassword),
				string(vaultDomain.CredentialTypeSSH),
				string(vaultDomain.CredentialTypeAPIToken),
				string(vaultDomain.CredentialTypeCertificate),
				string(vaultDomain.CredentialTypeDatabase),
			).Error("type must be one of: password, ssh, api_token, certificate, database"),
		),
		"name": validation.Validate(input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		"port": validation.Validate(input.Port,
			validation.Min(0).Error("port must not be negative"),
			validation.Max(65535).Error("port must be at most 65535"),
		),
		"secret": validation.Validate(input.Secret,
			validation.Required.Error("secret is required"),
		),
	}.Filter()
	return appValidation.WrapValidationError(err)
}

// Create validates input, encrypts the secret under the current vault key,
// and persists the credential owned by the principal.
func (u *credentialUseCase) Create(
	ctx context.Context,
	principal *authDomain.Principal,
	input CreateCredentialInput,
) (*vaultDomain.Credential, error) {
	if err := validateCreateCredentialInput(input); err != nil {
		return nil, err
	}

	credentialType, _ := vaultDomain.ParseCredentialType(input.Type)

	now := time.Now().UTC()
	credential := &vaultDomain.Credential{
		ID:        uuid.Must(uuid.NewV7()),
		OwnerID:   principal.ID,
		Type:      credentialType,
		Name:      strings.TrimSpace(input.Name),
		Host:      strings.TrimSpace(input.Host),
		Port:      input.Port,
		Username:  strings.TrimSpace(input.Username),
		Status:    vaultDomain.CredentialStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	encrypted, err := u.keyManager.Encrypt(input.Secret, credential.EncryptionPurpose())
	if err != nil {
		return nil, err
	}
	credential.Ciphertext = encrypted.Ciphertext
	credential.Nonce = encrypted.Nonce
	credential.KeyVersion = encrypted.KeyVersion

	err = u.txManager.WithTx(ctx, func(ctx context.Context) error {
		return u.credentialRepo.Create(ctx, credential)
	})
	if err != nil {
		return nil, err
	}

	return credential, nil
}

// loadAuthorized fetches a credential and runs the access decision. A record
// that exists outside the principal's scope surfaces as access-denied, not
// as not-found: the caller already holds a valid reference to it, so there
// is no existence to hide.
func (u *credentialUseCase) loadAuthorized(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
	allowed func(*authDomain.Principal, *vaultDomain.Credential) bool,
) (*vaultDomain.Credential, error) {
	credential, err := u.credentialRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !allowed(principal, credential) {
		return nil, vaultDomain.ErrAccessDenied
	}

	return credential, nil
}

// Get retrieves and decrypts a credential. This is the only code path that
// decrypts a stored payload, and it decrypts exactly once per call.
func (u *credentialUseCase) Get(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (*vaultDomain.Credential, error) {
	credential, err := u.loadAuthorized(ctx, principal, id, u.accessControl.CanRead)
	if err != nil {
		return nil, err
	}

	plaintext, err := u.keyManager.Decrypt(&cryptoDomain.EncryptedValue{
		KeyVersion: credential.KeyVersion,
		Nonce:      credential.Nonce,
		Ciphertext: credential.Ciphertext,
	}, credential.EncryptionPurpose())
	if err != nil {
		return nil, err
	}

	credential.Plaintext = plaintext
	return credential, nil
}

// GetMetadata retrieves a credential without touching its payload.
func (u *credentialUseCase) GetMetadata(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (*vaultDomain.Credential, error) {
	return u.loadAuthorized(ctx, principal, id, u.accessControl.CanRead)
}

// Update modifies credential metadata and optionally re-encrypts a new
// secret payload under the current key.
func (u *credentialUseCase) Update(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
	input UpdateCredentialInput,
) (*vaultDomain.Credential, error) {
	credential, err := u.loadAuthorized(ctx, principal, id, u.accessControl.CanWrite)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := validation.Validate(name,
			validation.Required.Error("name is required"),
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		); err != nil {
			return nil, appValidation.WrapValidationError(err)
		}
		credential.Name = name
	}
	if input.Host != nil {
		credential.Host = strings.TrimSpace(*input.Host)
	}
	if input.Port != nil {
		if err := validation.Validate(*input.Port,
			validation.Min(0).Error("port must not be negative"),
			validation.Max(65535).Error("port must be at most 65535"),
		); err != nil {
			return nil, appValidation.WrapValidationError(err)
		}
		credential.Port = *input.Port
	}
	if input.Username != nil {
		credential.Username = strings.TrimSpace(*input.Username)
	}
	if input.Status != nil {
		status, ok := vaultDomain.ParseCredentialStatus(*input.Status)
		if !ok {
			return nil, vaultDomain.ErrInvalidCredentialStatus
		}
		credential.Status = status
	}
	if input.Secret != nil {
		encrypted, err := u.keyManager.Encrypt(input.Secret, credential.EncryptionPurpose())
		if err != nil {
			return nil, err
		}
		credential.Ciphertext = encrypted.Ciphertext
		credential.Nonce = encrypted.Nonce
		credential.KeyVersion = encrypted.KeyVersion
	}

	credential.UpdatedAt = time.Now().UTC()

	err = u.txManager.WithTx(ctx, func(ctx context.Context) error {
		return u.credentialRepo.Update(ctx, credential)
	})
	if err != nil {
		return nil, err
	}

	return credential, nil
}

// Delete removes a credential permanently.
func (u *credentialUseCase) Delete(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) error {
	credential, err := u.loadAuthorized(ctx, principal, id, u.accessControl.CanDelete)
	if err != nil {
		return err
	}

	return u.txManager.WithTx(ctx, func(ctx context.Context) error {
		return u.credentialRepo.Delete(ctx, credential.ID)
	})
}

// List retrieves visible credentials with pagination. The repository applies
// the principal's scope in the query itself.
func (u *credentialUseCase) List(
	ctx context.Context,
	principal *authDomain.Principal,
	offset, limit int,
) ([]*vaultDomain.Credential, error) {
	scope := u.accessControl.Scope(principal)
	return u.credentialRepo.List(ctx, scope, offset, limit)
}

// StatusSummary returns visible credential counts per status.
func (u *credentialUseCase) StatusSummary(
	ctx context.Context,
	principal *authDomain.Principal,
) (map[vaultDomain.CredentialStatus]int64, error) {
	scope := u.accessControl.Scope(principal)
	return u.credentialRepo.CountByStatus(ctx, scope)
}

// Reencrypt migrates records encrypted under stale key versions to the
// current one. Records are processed in batches with bounded parallelism;
// each record is decrypted with its recorded version and re-encrypted under
// the current key in its own transaction, so a failure never leaves a
// half-written payload.
func (u *credentialUseCase) Reencrypt(ctx context.Context, batchSize, workers int) (*ReencryptReport, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	if workers <= 0 {
		workers = 4
	}

	currentVersion := u.ring.CurrentVersion()
	if currentVersion == 0 {
		return nil, cryptoDomain.ErrNoCurrentKey
	}

	var scanned, migrated atomic.Int64

	for {
		stale, err := u.credentialRepo.ListByKeyVersionNot(ctx, currentVersion, batchSize)
		if err != nil {
			return nil, err
		}
		if len(stale) == 0 {
			break
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(workers)

		for _, credential := range stale {
			group.Go(func() error {
				scanned.Add(1)
				if err := u.reencryptOne(groupCtx, credential, currentVersion); err != nil {
					return err
				}
				migrated.Add(1)
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			return nil, err
		}
	}

	report := &ReencryptReport{
		Scanned:  scanned.Load(),
		Migrated: migrated.Load(),
	}
	u.logger.Info("re-encryption migration finished",
		slog.Uint64("current_key_version", uint64(currentVersion)),
		slog.Int64("scanned", report.Scanned),
		slog.Int64("migrated", report.Migrated),
	)
	return report, nil
}

func (u *credentialUseCase) reencryptOne(
	ctx context.Context,
	credential *vaultDomain.Credential,
	currentVersion uint,
) error {
	plaintext, err := u.keyManager.Decrypt(&cryptoDomain.EncryptedValue{
		KeyVersion: credential.KeyVersion,
		Nonce:      credential.Nonce,
		Ciphertext: credential.Ciphertext,
	}, credential.EncryptionPurpose())
	if err != nil {
		return apperrors.Wrapf(err, "failed to decrypt credential %s for re-encryption", credential.ID)
	}
	defer cryptoDomain.Zero(plaintext)

	encrypted, err := u.keyManager.Encrypt(plaintext, credential.EncryptionPurpose())
	if err != nil {
		return apperrors.Wrapf(err, "failed to re-encrypt credential %s", credential.ID)
	}

	credential.Ciphertext = encrypted.Ciphertext
	credential.Nonce = encrypted.Nonce
	credential.KeyVersion = encrypted.KeyVersion
	credential.UpdatedAt = time.Now().UTC()

	return u.txManager.WithTx(ctx, func(ctx context.Context) error {
		return u.credentialRepo.UpdateEncryption(ctx, credential)
	})
}
