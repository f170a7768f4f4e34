// Package domain defines the core cryptographic domain models for the vault's
// encryption-at-rest layer.
//
// The key hierarchy has two tiers: a single master key wraps versioned vault
// keys, and vault keys encrypt credential payloads. Every ciphertext carries
// the version of the key that produced it, which is what makes rotation safe
// without a flag-day re-encryption of the whole store: old data stays
// decryptable until explicitly migrated, and only pruning beyond the history
// limit is destructive.
package domain

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// KeyMaterial represents one version of the vault encryption key.
// The plaintext Key is populated only in memory; at rest the key is stored
// encrypted under the master key (EncryptedKey + Nonce).
type KeyMaterial struct {
	Version      uint      // Monotonically increasing version identifier
	Algorithm    Algorithm // AEAD algorithm this key is used with
	Key          []byte    // Plaintext 32-byte key (in-memory only, never persisted)
	EncryptedKey []byte    // Key encrypted with the master key
	Nonce        []byte    // Nonce used when wrapping the key
	Purpose      string    // Scope label (e.g., "vault")
	CreatedAt    time.Time
}

// EncryptedValue is the output of a vault encryption: the ciphertext, the
// nonce used, and the version of the key that produced it. The key version
// binding is what allows decryption after rotations.
type EncryptedValue struct {
	KeyVersion uint
	Nonce      []byte
	Ciphertext []byte
}

// KeyRing manages the set of live vault key versions with exactly one
// designated current. The current key is used for all new encryptions;
// historical versions remain available for decrypting records that have not
// been re-encrypted yet.
//
// Reads are lock-free (sync.Map plus an atomic current-version pointer), so
// encrypt/decrypt operations on different records proceed fully in parallel.
// Rotation replaces the current pointer atomically: readers never observe a
// half-updated current key.
type KeyRing struct {
	current      atomic.Uint64
	keys         sync.Map // map[uint]*KeyMaterial
	historyLimit int
}

// NewKeyRing creates an empty KeyRing retaining historyLimit previous
// versions in addition to the current one.
func NewKeyRing(historyLimit int) *KeyRing {
	if historyLimit < 0 {
		historyLimit = 0
	}
	return &KeyRing{historyLimit: historyLimit}
}

// CurrentVersion returns the version used for new encryptions, or zero when
// the ring is empty.
func (r *KeyRing) CurrentVersion() uint {
	return uint(r.current.Load())
}

// Current returns the key material used for new encryptions.
func (r *KeyRing) Current() (*KeyMaterial, bool) {
	version := r.CurrentVersion()
	if version == 0 {
		return nil, false
	}
	return r.Get(version)
}

// Get retrieves a key version from the ring (current or historical).
func (r *KeyRing) Get(version uint) (*KeyMaterial, bool) {
	if km, ok := r.keys.Load(version); ok {
		return km.(*KeyMaterial), true
	}
	return nil, false
}

// Add stores a key version in the ring without changing the current pointer.
func (r *KeyRing) Add(km *KeyMaterial) {
	r.keys.Store(km.Version, km)
}

// SetCurrent atomically switches the version used for new encryptions.
// The version must already be present in the ring.
func (r *KeyRing) SetCurrent(version uint) bool {
	if _, ok := r.Get(version); !ok {
		return false
	}
	r.current.Store(uint64(version))
	return true
}

// Versions returns all live versions ordered descending (newest first).
func (r *KeyRing) Versions() []uint {
	var versions []uint
	r.keys.Range(func(key, _ any) bool {
		versions = append(versions, key.(uint))
		return true
	})
	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
	return versions
}

// Prune retires versions beyond the history limit, keeping the current
// version plus the historyLimit most recent previous ones. Retired key
// material is zeroed before removal. Returns the retired versions.
//
// Pruning is the only destructive key operation: any ciphertext still
// referencing a retired version becomes permanently unreadable.
func (r *KeyRing) Prune() []uint {
	versions := r.Versions()
	keep := r.historyLimit + 1
	if len(versions) <= keep {
		return nil
	}

	var retired []uint
	for _, version := range versions[keep:] {
		if km, ok := r.Get(version); ok {
			Zero(km.Key)
		}
		r.keys.Delete(version)
		retired = append(retired, version)
	}
	return retired
}

// Close securely clears all key material from memory and resets the ring.
// Called at shutdown so key bytes do not outlive the process lifetime.
func (r *KeyRing) Close() {
	r.keys.Range(func(key, value any) bool {
		if km, ok := value.(*KeyMaterial); ok {
			Zero(km.Key)
		}
		return true
	})
	r.current.Store(0)
	r.keys.Clear()
}
