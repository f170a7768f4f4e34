// Package usecase implements business logic orchestration for the credential
// vault: access control decisions, encrypt-on-write / decrypt-on-read, and
// the re-encryption migration that follows key rotations.
package usecase

import (
	"context"

	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// Scope is the visibility filter applied at the data-access boundary.
//
// Scoping happens in the repository query itself (SQL WHERE), not by shaping
// responses after an unscoped read: records outside the scope are never
// loaded into memory in the first place.
type Scope struct {
	// All grants visibility over every record (elevated roles).
	All bool
	// OwnerID restricts visibility to records owned by this principal when
	// All is false.
	OwnerID string
}

// AccessControl decides what a principal may do with a credential record.
//
// The rule is deliberately small: elevated roles (admin, manager) may act on
// any record, everyone else only on records they own. Decisions run before
// any cryptographic operation, so a denied request never touches key
// material.
type AccessControl interface {
	// CanRead reports whether the principal may read the record.
	CanRead(principal *authDomain.Principal, credential *vaultDomain.Credential) bool

	// CanWrite reports whether the principal may modify the record.
	CanWrite(principal *authDomain.Principal, credential *vaultDomain.Credential) bool

	// CanDelete reports whether the principal may delete the record.
	CanDelete(principal *authDomain.Principal, credential *vaultDomain.Credential) bool

	// Scope returns the repository filter for list and aggregate queries.
	Scope(principal *authDomain.Principal) Scope
}

// CredentialRepository defines persistence operations for credentials.
type CredentialRepository interface {
	// Create inserts a new credential.
	Create(ctx context.Context, credential *vaultDomain.Credential) error

	// GetByID retrieves a credential by id regardless of owner. Callers run
	// the access decision on the loaded record.
	GetByID(ctx context.Context, id uuid.UUID) (*vaultDomain.Credential, error)

	// Update persists metadata and payload changes for a credential.
	Update(ctx context.Context, credential *vaultDomain.Credential) error

	// Delete removes a credential permanently.
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves credentials visible within the scope ordered by name,
	// with pagination. Payload columns are included; callers must not expose
	// them without decrypting intent.
	List(ctx context.Context, scope Scope, offset, limit int) ([]*vaultDomain.Credential, error)

	// CountByStatus returns the number of visible credentials per status.
	CountByStatus(ctx context.Context, scope Scope) (map[vaultDomain.CredentialStatus]int64, error)

	// ListByKeyVersionNot returns up to limit credentials whose ciphertext
	// was produced by a key version other than current. Used by the
	// re-encryption migration.
	ListByKeyVersionNot(ctx context.Context, currentVersion uint, limit int) ([]*vaultDomain.Credential, error)

	// UpdateEncryption replaces the encrypted payload of a credential.
	UpdateEncryption(ctx context.Context, credential *vaultDomain.Credential) error

	// CountByKeyVersion reports how many records reference each non-current
	// key version. Feeds the rotation report's re-encryption backlog.
	CountByKeyVersion(ctx context.Context) (map[uint]int64, error)
}

// CreateCredentialInput contains the input data for creating a credential.
type CreateCredentialInput struct {
	Type     string
	Name     string
	Host     string
	Port     int
	Username string
	Secret   []byte
}

// UpdateCredentialInput contains the input data for updating a credential.
// Nil pointer fields are left unchanged; a non-nil Secret re-encrypts the
// payload under the current key.
type UpdateCredentialInput struct {
	Name     *string
	Host     *string
	Port     *int
	Username *string
	Status   *string
	Secret   []byte
}

// ReencryptReport describes the outcome of a re-encryption migration run.
type ReencryptReport struct {
	// Scanned is the number of stale records examined.
	Scanned int64
	// Migrated is the number of records successfully re-encrypted under the
	// current key version.
	Migrated int64
}

// CredentialUseCase defines the business logic for credential management.
//
// Every operation takes the authenticated principal and runs the access
// decision before touching ciphertext. Read is the only operation that
// decrypts, exactly once per successful call.
type CredentialUseCase interface {
	// Create validates input, encrypts the secret under the current vault
	// key, and persists the credential owned by the principal.
	Create(ctx context.Context, principal *authDomain.Principal, input CreateCredentialInput) (*vaultDomain.Credential, error)

	// Get retrieves and decrypts a credential. Returns not-found when the
	// record does not exist and access-denied when it exists outside the
	// principal's scope.
	Get(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) (*vaultDomain.Credential, error)

	// GetMetadata retrieves a credential without decrypting its payload.
	GetMetadata(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) (*vaultDomain.Credential, error)

	// Update modifies credential metadata and optionally re-encrypts a new
	// secret payload.
	Update(ctx context.Context, principal *authDomain.Principal, id uuid.UUID, input UpdateCredentialInput) (*vaultDomain.Credential, error)

	// Delete removes a credential permanently.
	Delete(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) error

	// List retrieves visible credentials with pagination, metadata only.
	List(ctx context.Context, principal *authDomain.Principal, offset, limit int) ([]*vaultDomain.Credential, error)

	// StatusSummary returns visible credential counts per status.
	StatusSummary(ctx context.Context, principal *authDomain.Principal) (map[vaultDomain.CredentialStatus]int64, error)

	// Reencrypt migrates records encrypted under stale key versions to the
	// current one, decrypting and re-encrypting in bounded parallel batches.
	Reencrypt(ctx context.Context, batchSize, workers int) (*ReencryptReport, error)
}
