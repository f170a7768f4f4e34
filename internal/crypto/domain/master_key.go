package domain

import (
	"context"
	"encoding/hex"
	"fmt"
)

// MasterKey is the root of the key hierarchy: it wraps vault keys at rest
// and never encrypts credential payloads directly.
//
// In development the master key is supplied as a fixed-length hex secret; in
// production it can instead be unwrapped through a KMS keeper at startup.
// The key is held for the process lifetime and zeroed at shutdown.
type MasterKey struct {
	Key []byte
}

// KMSKeeper abstracts a KMS-backed envelope keeper (implemented by
// gocloud.dev/secrets.Keeper). Used to unwrap a KMS-wrapped master key.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// ParseMasterKey decodes a hex-encoded master key and validates its length.
// The encoded form must be exactly 64 hex characters (32 bytes).
func ParseMasterKey(encoded string) (*MasterKey, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: MASTER_KEY is not set", ErrInvalidMasterKey)
	}

	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid hex", ErrInvalidMasterKey)
	}
	if len(key) != KeySize {
		Zero(key)
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidMasterKey, KeySize, len(key))
	}

	return &MasterKey{Key: key}, nil
}

// Close zeroes the master key material.
func (m *MasterKey) Close() {
	Zero(m.Key)
	m.Key = nil
}
