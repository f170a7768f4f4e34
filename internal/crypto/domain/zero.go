package domain

// Zero overwrites a byte slice with zeros. Key material (master key, vault
// keys, unwrapped backups) is zeroed as soon as its owner releases it so
// plaintext keys do not linger in memory longer than needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
