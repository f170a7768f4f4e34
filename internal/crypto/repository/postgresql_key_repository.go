// Package repository implements persistence for wrapped vault keys.
//
// Vault keys are stored wrapped under the master key; plaintext key material
// never reaches this layer. Repositories follow the Repository pattern and
// support transaction-aware operations via database.GetTx(), which key
// rotation uses to retire old versions atomically.
//
// Each repository type has two implementations:
//   - PostgreSQL: BYTEA for binary data
//   - MySQL: BLOB for binary data
package repository

import (
	"context"
	"database/sql"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// PostgreSQLKeyRepository implements vault key persistence for PostgreSQL.
//
// Database schema requirements:
//   - version: BIGINT PRIMARY KEY
//   - algorithm: TEXT (e.g., "aes-gcm", "chacha20-poly1305")
//   - encrypted_key: BYTEA (key material wrapped under the master key)
//   - nonce: BYTEA (wrapping nonce)
//   - purpose: TEXT (scope label bound as AAD during wrapping)
//   - created_at: TIMESTAMP WITH TIME ZONE
type PostgreSQLKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLKeyRepository creates a new PostgreSQL vault key repository.
func NewPostgreSQLKeyRepository(db *sql.DB) *PostgreSQLKeyRepository {
	return &PostgreSQLKeyRepository{db: db}
}

// Create inserts a new wrapped vault key. Only the wrapped fields are
// persisted; the plaintext Key field is ignored.
func (p *PostgreSQLKeyRepository) Create(ctx context.Context, material *cryptoDomain.KeyMaterial) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO vault_keys (version, algorithm, encrypted_key, nonce, purpose, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		material.Version,
		material.Algorithm,
		material.EncryptedKey,
		material.Nonce,
		material.Purpose,
		material.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create vault key")
	}
	return nil
}

// List retrieves all wrapped vault keys ordered by version descending.
//
// The ordering matters: the first row is the newest version, which the key
// use case marks as current when populating the ring at startup.
func (p *PostgreSQLKeyRepository) List(ctx context.Context) ([]*cryptoDomain.KeyMaterial, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT version, algorithm, encrypted_key, nonce, purpose, created_at
			  FROM vault_keys ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var materials []*cryptoDomain.KeyMaterial
	for rows.Next() {
		var material cryptoDomain.KeyMaterial

		err := rows.Scan(
			&material.Version,
			&material.Algorithm,
			&material.EncryptedKey,
			&material.Nonce,
			&material.Purpose,
			&material.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		materials = append(materials, &material)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return materials, nil
}

// Delete removes a retired key version. Destructive: any ciphertext still
// referencing the version becomes permanently unreadable.
func (p *PostgreSQLKeyRepository) Delete(ctx context.Context, version uint) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM vault_keys WHERE version = $1`

	_, err := querier.ExecContext(ctx, query, version)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete vault key")
	}
	return nil
}
