package repository

import (
	"github.com/google/uuid"
)

// bytesToUUID converts a BINARY(16) column value into a uuid.UUID.
func bytesToUUID(b []byte) (uuid.UUID, error) {
	return uuid.FromBytes(b)
}
