// Package service provides the cryptographic services of the vault's
// encryption-at-rest layer: AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305),
// versioned key management, key derivation, and key backup.
package service

import (
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyManager defines the interface for the vault's key-management operations.
//
// Every ciphertext produced by Encrypt carries the version of the key that
// produced it; Decrypt requires that version to be live in the key ring.
// Authorization is always checked by callers before either operation runs.
type KeyManager interface {
	// Encrypt encrypts plaintext under the current vault key, binding the
	// purpose string as additional authenticated data. Returns the
	// ciphertext together with the key version used.
	// Fails with ErrNoCurrentKey if no current key is configured.
	Encrypt(plaintext []byte, purpose string) (*cryptoDomain.EncryptedValue, error)

	// Decrypt decrypts a value using the key version recorded in it.
	// Fails with ErrKeyNotFound when the version is unknown or retired, and
	// with ErrIntegrityCheckFailed when the authentication tag does not
	// verify or the nonce/ciphertext are malformed.
	Decrypt(value *cryptoDomain.EncryptedValue, purpose string) ([]byte, error)

	// GenerateKey creates fresh random key material for the given version,
	// wrapped under the master key for persistence.
	GenerateKey(version uint, purpose string) (*cryptoDomain.KeyMaterial, error)

	// UnwrapKey decrypts the wrapped key material of a persisted vault key,
	// populating its plaintext Key field.
	UnwrapKey(km *cryptoDomain.KeyMaterial) error

	// WrapKey seals existing plaintext key material under the master key,
	// populating the EncryptedKey and Nonce fields for persistence.
	WrapKey(km *cryptoDomain.KeyMaterial) error

	// DeriveKey deterministically derives a 32-byte key from the master key,
	// a purpose label, and a salt using PBKDF2-SHA256 with a fixed high
	// iteration count. Equal inputs always yield the same derived key, which
	// scopes keys per tenant/purpose without storing extra secrets.
	DeriveKey(purpose string, salt []byte) []byte

	// ValidateKey performs structural validation of candidate key material
	// (length only); it is not a cryptographic guarantee.
	ValidateKey(candidate []byte) bool

	// Backup serializes the full key set and seals it under a key derived
	// from the passphrase (independent KDF salt, independent nonce).
	Backup(passphrase string) ([]byte, error)

	// Restore opens a backup blob and returns the contained key material.
	// Fails with ErrBackupCorrupted on a wrong passphrase or corrupted blob;
	// it never silently returns garbage.
	Restore(blob []byte, passphrase string) ([]*cryptoDomain.KeyMaterial, error)
}
