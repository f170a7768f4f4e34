package domain

// Algorithm represents the authenticated-encryption algorithm used for a key.
//
// Both supported algorithms provide AEAD (confidentiality plus an integrity
// tag) with 256-bit keys, 12-byte nonces and 16-byte authentication tags.
//
// Algorithm selection guidelines:
//   - Use AESGCM on modern CPUs with AES-NI hardware acceleration
//   - Use ChaCha20 on systems without AES-NI
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the required key length in bytes for all vault keys, the master
// key, and passphrase-derived keys (256 bits).
const KeySize = 32
