package service

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// Key backup blob layout: magic || salt (16 bytes) || nonce (12 bytes) || sealed JSON.
// The sealed payload is the full key set encrypted under a passphrase-derived
// AES-256-GCM key. The KDF salt is independent of any other derivation in the
// system, and the nonce is independent of any data-path nonce.
var backupMagic = []byte("CVB1")

const backupSaltSize = 16

// backupEntry is the serialized form of one vault key inside a backup blob.
type backupEntry struct {
	Version   uint                   `json:"version"`
	Algorithm cryptoDomain.Algorithm `json:"algorithm"`
	Key       []byte                 `json:"key"`
	Purpose   string                 `json:"purpose"`
	CreatedAt time.Time              `json:"created_at"`
}

// Backup serializes every live key version and seals the set under a key
// derived from the passphrase. Intended for disaster recovery: the blob is
// useless without the passphrase, and wrapped database rows are useless
// without the master key.
func (km *KeyManagerService) Backup(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty backup passphrase", cryptoDomain.ErrInvalidKeySize)
	}

	var entries []backupEntry
	for _, version := range km.ring.Versions() {
		material, ok := km.ring.Get(version)
		if !ok {
			continue
		}
		entries = append(entries, backupEntry{
			Version:   material.Version,
			Algorithm: material.Algorithm,
			Key:       material.Key,
			Purpose:   material.Purpose,
			CreatedAt: material.CreatedAt,
		})
	}
	if len(entries) == 0 {
		return nil, cryptoDomain.ErrNoCurrentKey
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize key backup: %w", err)
	}

	salt := make([]byte, backupSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate backup salt: %w", err)
	}

	sealKey := deriveBackupKey(passphrase, salt)
	defer cryptoDomain.Zero(sealKey)

	aead, err := km.aeadManager.CreateCipher(sealKey, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, err := aead.Encrypt(payload, backupMagic)
	if err != nil {
		return nil, fmt.Errorf("failed to seal key backup: %w", err)
	}
	cryptoDomain.Zero(payload)

	blob := make([]byte, 0, len(backupMagic)+backupSaltSize+nonceSize+len(ciphertext))
	blob = append(blob, backupMagic...)
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Restore opens a backup blob and returns the contained key material.
//
// A wrong passphrase or any corruption of the blob fails the authentication
// tag and surfaces ErrBackupCorrupted immediately; restore never returns
// garbage key material. The returned keys carry plaintext material only and
// must be re-wrapped under the master key before persistence.
func (km *KeyManagerService) Restore(
	blob []byte,
	passphrase string,
) ([]*cryptoDomain.KeyMaterial, error) {
	headerSize := len(backupMagic) + backupSaltSize + nonceSize
	if len(blob) < headerSize+tagSize || !bytes.HasPrefix(blob, backupMagic) {
		return nil, cryptoDomain.ErrBackupCorrupted
	}

	salt := blob[len(backupMagic) : len(backupMagic)+backupSaltSize]
	nonce := blob[len(backupMagic)+backupSaltSize : headerSize]
	ciphertext := blob[headerSize:]

	openKey := deriveBackupKey(passphrase, salt)
	defer cryptoDomain.Zero(openKey)

	aead, err := km.aeadManager.CreateCipher(openKey, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	payload, err := aead.Decrypt(ciphertext, nonce, backupMagic)
	if err != nil {
		return nil, cryptoDomain.ErrBackupCorrupted
	}
	defer cryptoDomain.Zero(payload)

	var entries []backupEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, cryptoDomain.ErrBackupCorrupted
	}

	keys := make([]*cryptoDomain.KeyMaterial, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Key) != cryptoDomain.KeySize {
			return nil, cryptoDomain.ErrBackupCorrupted
		}
		keys = append(keys, &cryptoDomain.KeyMaterial{
			Version:   entry.Version,
			Algorithm: entry.Algorithm,
			Key:       entry.Key,
			Purpose:   entry.Purpose,
			CreatedAt: entry.CreatedAt,
		})
	}
	return keys, nil
}

// deriveBackupKey derives the backup sealing key from a passphrase.
// PBKDF2-SHA256 with a per-backup random salt, independent of DeriveKey.
func deriveBackupKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, kdfIterations, cryptoDomain.KeySize, sha256.New)
}
