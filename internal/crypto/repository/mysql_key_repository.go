package repository

import (
	"context"
	"database/sql"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
)

// MySQLKeyRepository implements vault key persistence for MySQL.
//
// Same contract as PostgreSQLKeyRepository, with MySQL placeholders and BLOB
// columns for the binary fields.
type MySQLKeyRepository struct {
	db *sql.DB
}

// NewMySQLKeyRepository creates a new MySQL vault key repository.
func NewMySQLKeyRepository(db *sql.DB) *MySQLKeyRepository {
	return &MySQLKeyRepository{db: db}
}

// Create inserts a new wrapped vault key.
func (m *MySQLKeyRepository) Create(ctx context.Context, material *cryptoDomain.KeyMaterial) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO vault_keys (version, algorithm, encrypted_key, nonce, purpose, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

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
func (m *MySQLKeyRepository) List(ctx context.Context) ([]*cryptoDomain.KeyMaterial, error) {
	querier := database.GetTx(ctx, m.db)

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

// Delete removes a retired key version.
func (m *MySQLKeyRepository) Delete(ctx context.Context, version uint) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM vault_keys WHERE version = ?`

	_, err := querier.ExecContext(ctx, query, version)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete vault key")
	}
	return nil
}
