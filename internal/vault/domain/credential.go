// Package domain defines the core domain models for privileged credential
// storage. Credentials are encrypted at rest under the current vault key with
// the record identity bound as additional authenticated data, so a ciphertext
// copied between rows fails its integrity check instead of decrypting.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// CredentialType identifies what kind of privileged credential a record holds.
type CredentialType string

// Supported credential types.
const (
	CredentialTypePassword    CredentialType = "password"
	CredentialTypeSSH         CredentialType = "ssh"
	CredentialTypeAPIToken    CredentialType = "api_token"
	CredentialTypeCertificate CredentialType = "certificate"
	CredentialTypeDatabase    CredentialType = "database"
)

// ParseCredentialType maps a raw string onto the closed credential type set.
func ParseCredentialType(raw string) (CredentialType, bool) {
	switch CredentialType(raw) {
	case CredentialTypePassword, CredentialTypeSSH, CredentialTypeAPIToken,
		CredentialTypeCertificate, CredentialTypeDatabase:
		return CredentialType(raw), true
	}
	return "", false
}

// CredentialStatus tracks the operational state of a credential.
type CredentialStatus string

// Credential statuses.
const (
	CredentialStatusActive   CredentialStatus = "active"
	CredentialStatusDisabled CredentialStatus = "disabled"
	CredentialStatusExpired  CredentialStatus = "expired"
)

// ParseCredentialStatus maps a raw string onto the closed status set.
func ParseCredentialStatus(raw string) (CredentialStatus, bool) {
	switch CredentialStatus(raw) {
	case CredentialStatusActive, CredentialStatusDisabled, CredentialStatusExpired:
		return CredentialStatus(raw), true
	}
	return "", false
}

// Credential represents one stored privileged credential.
//
// The secret payload exists in two forms: Ciphertext/Nonce/KeyVersion at rest
// and the transient Plaintext populated only for the duration of a read
// response. Plaintext is never persisted, cached, or logged.
type Credential struct {
	// ID is the unique identifier for this credential.
	ID uuid.UUID
	// OwnerID identifies the principal that created the credential and may
	// always access it regardless of role.
	OwnerID string
	// Type is the kind of credential stored (password, ssh, api_token, ...).
	Type CredentialType
	// Name is a human-readable label, unique per owner.
	Name string
	// Host is the optional target host this credential applies to.
	Host string
	// Port is the optional target port (0 when unset).
	Port int
	// Username is the optional account name on the target system.
	Username string
	// Ciphertext is the encrypted secret payload.
	Ciphertext []byte
	// Nonce is the random value used during AEAD encryption.
	Nonce []byte
	// KeyVersion is the vault key version that produced the ciphertext.
	KeyVersion uint
	// Status is the operational state (active, disabled, expired).
	Status CredentialStatus
	// Plaintext holds the decrypted secret in memory only; zeroed after use.
	Plaintext []byte `json:"-"`
	// CreatedAt is the UTC timestamp when the credential was created.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last modification.
	UpdatedAt time.Time
}

// EncryptionPurpose returns the AAD label binding a ciphertext to this
// record. Decrypting with any other record's label fails the integrity check.
func (c *Credential) EncryptionPurpose() string {
	return "credential:" + c.ID.String()
}
