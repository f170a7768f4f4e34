// Package repository implements data persistence for credentials.
// Repositories support both PostgreSQL and MySQL. Visibility scoping is
// applied inside the queries themselves: a scoped caller's SQL never touches
// rows outside their scope, which is the enforcement point for the
// least-privilege listing guarantees.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

const credentialColumns = `id, owner_id, type, name, host, port, username,
			  ciphertext, nonce, key_version, status, created_at, updated_at`

// PostgreSQLCredentialRepository implements credential persistence for PostgreSQL.
type PostgreSQLCredentialRepository struct {
	db *sql.DB
}

// NewPostgreSQLCredentialRepository creates a new PostgreSQLCredentialRepository.
func NewPostgreSQLCredentialRepository(db *sql.DB) *PostgreSQLCredentialRepository {
	return &PostgreSQLCredentialRepository{db: db}
}

// Create inserts a new credential.
func (r *PostgreSQLCredentialRepository) Create(ctx context.Context, credential *vaultDomain.Credential) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO credentials (id, owner_id, type, name, host, port, username,
			  ciphertext, nonce, key_version, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := querier.ExecContext(
		ctx,
		query,
		credential.ID,
		credential.OwnerID,
		string(credential.Type),
		credential.Name,
		credential.Host,
		credential.Port,
		credential.Username,
		credential.Ciphertext,
		credential.Nonce,
		credential.KeyVersion,
		string(credential.Status),
		credential.CreatedAt,
		credential.UpdatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return vaultDomain.ErrCredentialAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create credential")
	}
	return nil
}

// GetByID retrieves a credential by id regardless of owner. The access
// decision runs on the loaded record in the use case layer, which is what
// lets an existing-but-unowned record surface as forbidden instead of
// not-found.
func (r *PostgreSQLCredentialRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*vaultDomain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`

	var credential vaultDomain.Credential
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&credential.ID,
		&credential.OwnerID,
		&credential.Type,
		&credential.Name,
		&credential.Host,
		&credential.Port,
		&credential.Username,
		&credential.Ciphertext,
		&credential.Nonce,
		&credential.KeyVersion,
		&credential.Status,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential by id")
	}

	return &credential, nil
}

// Update persists metadata and payload changes for a credential.
func (r *PostgreSQLCredentialRepository) Update(ctx context.Context, credential *vaultDomain.Credential) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE credentials
			  SET name = $1, host = $2, port = $3, username = $4,
			      ciphertext = $5, nonce = $6, key_version = $7, status = $8, updated_at = $9
			  WHERE id = $10`

	result, err := querier.ExecContext(
		ctx,
		query,
		credential.Name,
		credential.Host,
		credential.Port,
		credential.Username,
		credential.Ciphertext,
		credential.Nonce,
		credential.KeyVersion,
		string(credential.Status),
		credential.UpdatedAt,
		credential.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update credential")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to update credential")
	}
	if rows == 0 {
		return vaultDomain.ErrCredentialNotFound
	}
	return nil
}

// Delete removes a credential permanently.
func (r *PostgreSQLCredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	if rows == 0 {
		return vaultDomain.ErrCredentialNotFound
	}
	return nil
}

// List retrieves credentials visible within the scope ordered by name.
func (r *PostgreSQLCredentialRepository) List(
	ctx context.Context,
	scope vaultUseCase.Scope,
	offset, limit int,
) ([]*vaultDomain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + credentialColumns + ` FROM credentials`
	args := []any{}
	if !scope.All {
		query += ` WHERE owner_id = $1`
		args = append(args, scope.OwnerID)
		query += ` ORDER BY name ASC LIMIT $2 OFFSET $3`
	} else {
		query += ` ORDER BY name ASC LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	defer func() { _ = rows.Close() }()

	var credentials []*vaultDomain.Credential
	for rows.Next() {
		var credential vaultDomain.Credential
		err := rows.Scan(
			&credential.ID,
			&credential.OwnerID,
			&credential.Type,
			&credential.Name,
			&credential.Host,
			&credential.Port,
			&credential.Username,
			&credential.Ciphertext,
			&credential.Nonce,
			&credential.KeyVersion,
			&credential.Status,
			&credential.CreatedAt,
			&credential.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential")
		}
		credentials = append(credentials, &credential)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}

	return credentials, nil
}

// CountByStatus returns the number of visible credentials per status.
func (r *PostgreSQLCredentialRepository) CountByStatus(
	ctx context.Context,
	scope vaultUseCase.Scope,
) (map[vaultDomain.CredentialStatus]int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT status, COUNT(*) FROM credentials`
	args := []any{}
	if !scope.All {
		query += ` WHERE owner_id = $1`
		args = append(args, scope.OwnerID)
	}
	query += ` GROUP BY status`

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count credentials by status")
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[vaultDomain.CredentialStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan status count")
		}
		counts[vaultDomain.CredentialStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to count credentials by status")
	}

	return counts, nil
}

// ListByKeyVersionNot returns up to limit credentials encrypted under a key
// version other than current. Feeds the re-encryption migration.
func (r *PostgreSQLCredentialRepository) ListByKeyVersionNot(
	ctx context.Context,
	currentVersion uint,
	limit int,
) ([]*vaultDomain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + credentialColumns + `
			  FROM credentials WHERE key_version != $1
			  ORDER BY key_version ASC LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, currentVersion, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale credentials")
	}
	defer func() { _ = rows.Close() }()

	var credentials []*vaultDomain.Credential
	for rows.Next() {
		var credential vaultDomain.Credential
		err := rows.Scan(
			&credential.ID,
			&credential.OwnerID,
			&credential.Type,
			&credential.Name,
			&credential.Host,
			&credential.Port,
			&credential.Username,
			&credential.Ciphertext,
			&credential.Nonce,
			&credential.KeyVersion,
			&credential.Status,
			&credential.CreatedAt,
			&credential.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential")
		}
		credentials = append(credentials, &credential)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale credentials")
	}

	return credentials, nil
}

// UpdateEncryption replaces the encrypted payload of a credential.
func (r *PostgreSQLCredentialRepository) UpdateEncryption(
	ctx context.Context,
	credential *vaultDomain.Credential,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE credentials
			  SET ciphertext = $1, nonce = $2, key_version = $3, updated_at = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		credential.Ciphertext,
		credential.Nonce,
		credential.KeyVersion,
		credential.UpdatedAt,
		credential.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update credential encryption")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to update credential encryption")
	}
	if rows == 0 {
		return vaultDomain.ErrCredentialNotFound
	}
	return nil
}

// CountByKeyVersion reports how many records reference each key version.
// Rotation subtracts the new current version to produce the re-encryption
// backlog.
func (r *PostgreSQLCredentialRepository) CountByKeyVersion(ctx context.Context) (map[uint]int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT key_version, COUNT(*) FROM credentials GROUP BY key_version`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count credentials by key version")
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[uint]int64)
	for rows.Next() {
		var version uint
		var count int64
		if err := rows.Scan(&version, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key version count")
		}
		counts[version] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to count credentials by key version")
	}

	return counts, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
