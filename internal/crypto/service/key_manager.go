package service

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// kdfIterations is the fixed PBKDF2-SHA256 iteration count for derived keys.
// Changing it changes every derived key, so it is versioned implicitly by the
// backup format and must not be lowered.
const kdfIterations = 210_000

// nonceSize is the AEAD nonce length shared by both supported algorithms.
const nonceSize = 12

// tagSize is the AEAD authentication tag length shared by both supported algorithms.
const tagSize = 16

// KeyManagerService implements the KeyManager interface over a two-tier key
// hierarchy: the master key wraps versioned vault keys, and the current vault
// key encrypts credential payloads.
//
// The service holds no per-request state. Encrypt and Decrypt operate on
// immutable key material looked up from the KeyRing, so concurrent calls on
// different records proceed fully in parallel. Rotation (performed by the
// key use case) only swaps the ring's current pointer atomically.
type KeyManagerService struct {
	masterKey   *cryptoDomain.MasterKey
	ring        *cryptoDomain.KeyRing
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
}

// NewKeyManager creates a new KeyManagerService instance.
//
// The master key wraps vault keys at rest; the ring holds the live key
// versions; the algorithm selects the AEAD used for newly generated keys.
func NewKeyManager(
	masterKey *cryptoDomain.MasterKey,
	ring *cryptoDomain.KeyRing,
	aeadManager AEADManager,
	algorithm cryptoDomain.Algorithm,
) *KeyManagerService {
	return &KeyManagerService{
		masterKey:   masterKey,
		ring:        ring,
		aeadManager: aeadManager,
		algorithm:   algorithm,
	}
}

// Encrypt encrypts plaintext under the current vault key.
//
// The purpose string is bound as additional authenticated data, so the
// resulting ciphertext only opens under the same purpose. The returned value
// records the key version used, which is the mechanism that keeps rotation
// safe: the record can always name the key that produced its ciphertext.
func (km *KeyManagerService) Encrypt(
	plaintext []byte,
	purpose string,
) (*cryptoDomain.EncryptedValue, error) {
	current, ok := km.ring.Current()
	if !ok {
		return nil, cryptoDomain.ErrNoCurrentKey
	}

	aead, err := km.aeadManager.CreateCipher(current.Key, current.Algorithm)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, err := aead.Encrypt(plaintext, []byte(purpose))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrIntegrityCheckFailed, err)
	}

	return &cryptoDomain.EncryptedValue{
		KeyVersion: current.Version,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Decrypt decrypts a value using the key version recorded in it.
//
// The lookup covers current and historical versions; a version pruned beyond
// the history limit yields ErrKeyNotFound. A failed authentication tag,
// wrong purpose, or malformed nonce/ciphertext yields ErrIntegrityCheckFailed
// without disclosing which condition occurred.
func (km *KeyManagerService) Decrypt(
	value *cryptoDomain.EncryptedValue,
	purpose string,
) ([]byte, error) {
	if value == nil || len(value.Nonce) != nonceSize || len(value.Ciphertext) < tagSize {
		return nil, cryptoDomain.ErrMalformedCiphertext
	}

	key, ok := km.ring.Get(value.KeyVersion)
	if !ok {
		return nil, fmt.Errorf("%w: version %d", cryptoDomain.ErrKeyNotFound, value.KeyVersion)
	}

	aead, err := km.aeadManager.CreateCipher(key.Key, key.Algorithm)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Decrypt(value.Ciphertext, value.Nonce, []byte(purpose))
	if err != nil {
		return nil, cryptoDomain.ErrIntegrityCheckFailed
	}

	return plaintext, nil
}

// GenerateKey creates fresh random key material for the given version and
// wraps it under the master key for persistence.
//
// The purpose label is bound as AAD when wrapping, so a wrapped key row
// cannot be replayed under a different purpose.
func (km *KeyManagerService) GenerateKey(
	version uint,
	purpose string,
) (*cryptoDomain.KeyMaterial, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate vault key: %w", err)
	}

	material := &cryptoDomain.KeyMaterial{
		Version:   version,
		Algorithm: km.algorithm,
		Key:       key,
		Purpose:   purpose,
		CreatedAt: time.Now().UTC(),
	}
	if err := km.WrapKey(material); err != nil {
		return nil, err
	}
	return material, nil
}

// WrapKey seals existing plaintext key material under the master key,
// populating the EncryptedKey and Nonce fields for persistence. Used when
// generating keys and when re-wrapping keys restored from a backup.
func (km *KeyManagerService) WrapKey(material *cryptoDomain.KeyMaterial) error {
	if len(material.Key) != cryptoDomain.KeySize {
		return cryptoDomain.ErrInvalidKeySize
	}

	aead, err := km.aeadManager.CreateCipher(km.masterKey.Key, material.Algorithm)
	if err != nil {
		return err
	}

	encryptedKey, nonce, err := aead.Encrypt(material.Key, []byte(material.Purpose))
	if err != nil {
		return fmt.Errorf("failed to wrap vault key: %w", err)
	}

	material.EncryptedKey = encryptedKey
	material.Nonce = nonce
	return nil
}

// UnwrapKey decrypts the wrapped key material of a persisted vault key,
// populating its plaintext Key field. Used when loading the ring at startup.
func (km *KeyManagerService) UnwrapKey(material *cryptoDomain.KeyMaterial) error {
	aead, err := km.aeadManager.CreateCipher(km.masterKey.Key, material.Algorithm)
	if err != nil {
		return err
	}

	key, err := aead.Decrypt(material.EncryptedKey, material.Nonce, []byte(material.Purpose))
	if err != nil {
		return cryptoDomain.ErrIntegrityCheckFailed
	}

	material.Key = key
	return nil
}

// DeriveKey deterministically derives a 32-byte key from the master key,
// a purpose label, and a salt using PBKDF2-SHA256.
//
// The purpose is folded into the salt so distinct purposes yield independent
// keys from the same master key without storing extra secrets. The same
// (master key, purpose, salt) triple always yields the same derived key.
func (km *KeyManagerService) DeriveKey(purpose string, salt []byte) []byte {
	derivationSalt := make([]byte, 0, len(purpose)+1+len(salt))
	derivationSalt = append(derivationSalt, []byte(purpose)...)
	derivationSalt = append(derivationSalt, 0x00)
	derivationSalt = append(derivationSalt, salt...)

	return pbkdf2.Key(km.masterKey.Key, derivationSalt, kdfIterations, cryptoDomain.KeySize, sha256.New)
}

// ValidateKey performs structural validation of candidate key material.
// Length check only; it does not prove the bytes are a real vault key.
func (km *KeyManagerService) ValidateKey(candidate []byte) bool {
	return len(candidate) == cryptoDomain.KeySize
}
