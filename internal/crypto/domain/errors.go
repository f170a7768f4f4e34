package domain

import (
	"github.com/allisson/credvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// Errors caused by bad input wrap errors.ErrInvalidInput (422-class), while
// failures of the encryption machinery itself wrap errors.ErrEncryption
// (500-class). The split matters operationally: an integrity failure or an
// unknown key version signals tampering or key loss and must never be
// confused with a plain "not found".
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is
	// not supported. Supported: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidMasterKey indicates the configured master key is missing,
	// not valid hex, or has the wrong length.
	ErrInvalidMasterKey = errors.Wrap(errors.ErrInvalidInput, "invalid master key")

	// ErrNoCurrentKey indicates no vault key is configured for new encryptions.
	ErrNoCurrentKey = errors.Wrap(errors.ErrEncryption, "no current key configured")

	// ErrKeyNotFound indicates the key version referenced by a ciphertext is
	// unknown or has been retired. Ciphertext still referencing a retired
	// version is permanently unreadable.
	ErrKeyNotFound = errors.Wrap(errors.ErrEncryption, "key version not found")

	// ErrIntegrityCheckFailed indicates the authentication tag did not verify:
	// the ciphertext was tampered with, the wrong key was used, or the nonce
	// is malformed. The specific cause is not disclosed to prevent leaking
	// information useful to an attacker.
	ErrIntegrityCheckFailed = errors.Wrap(errors.ErrEncryption, "integrity check failed")

	// ErrMalformedCiphertext indicates the ciphertext or nonce has an invalid
	// structure and cannot be submitted to the cipher at all.
	ErrMalformedCiphertext = errors.Wrap(errors.ErrEncryption, "malformed ciphertext")

	// ErrBackupCorrupted indicates a key backup blob failed its integrity
	// check: wrong passphrase or corrupted data. Restore never returns
	// garbage key material.
	ErrBackupCorrupted = errors.Wrap(errors.ErrEncryption, "backup corrupted or wrong passphrase")
)
