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

// MySQLCredentialRepository implements credential persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLCredentialRepository struct {
	db *sql.DB
}

// NewMySQLCredentialRepository creates a new MySQLCredentialRepository.
func NewMySQLCredentialRepository(db *sql.DB) *MySQLCredentialRepository {
	return &MySQLCredentialRepository{db: db}
}

// Create inserts a new credential.
func (r *MySQLCredentialRepository) Create(ctx context.Context, credential *vaultDomain.Credential) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO credentials (id, owner_id, type, name, host, port, username,
			  ciphertext, nonce, key_version, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		credential.ID[:],
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
		if isMySQLUniqueViolation(err) {
			return vaultDomain.ErrCredentialAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create credential")
	}
	return nil
}

func scanMySQLCredential(scan func(dest ...any) error) (*vaultDomain.Credential, error) {
	var credential vaultDomain.Credential
	var idBytes []byte

	err := scan(
		&idBytes,
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
		return nil, err
	}

	credential.ID, err = uuid.FromBytes(idBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse credential id")
	}
	return &credential, nil
}

// GetByID retrieves a credential by id regardless of owner.
func (r *MySQLCredentialRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*vaultDomain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = ?`

	credential, err := scanMySQLCredential(querier.QueryRowContext(ctx, query, id[:]).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential by id")
	}
	return credential, nil
}

// Update persists metadata and payload changes for a credential.
func (r *MySQLCredentialRepository) Update(ctx context.Context, credential *vaultDomain.Credential) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE credentials
			  SET name = ?, host = ?, port = ?, username = ?,
			      ciphertext = ?, nonce = ?, key_version = ?, status = ?, updated_at = ?
			  WHERE id = ?`

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
		credential.ID[:],
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
func (r *MySQLCredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id[:])
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
func (r *MySQLCredentialRepository) List(
	ctx context.Context,
	scope vaultUseCase.Scope,
	offset, limit int,
) ([]*vaultDomain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + credentialColumns + ` FROM credentials`
	args := []any{}
	if !scope.All {
		query += ` WHERE owner_id = ?`
		args = append(args, scope.OwnerID)
	}
	query += ` ORDER BY name ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	defer func() { _ = rows.Close() }()

	var credentials []*vaultDomain.Credential
	for rows.Next() {
		credential, err := scanMySQLCredential(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential")
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}

	return credentials, nil
}

// CountByStatus returns the number of visible credentials per status.
func (r *MySQLCredentialRepository) CountByStatus(
	ctx context.Context,
	scope vaultUseCase.Scope,
) (map[vaultDomain.CredentialStatus]int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT status, COUNT(*) FROM credentials`
	args := []any{}
	if !scope.All {
		query += ` WHERE owner_id = ?`
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
// version other than current.
func (r *MySQLCredentialRepository) ListByKeyVersionNot(
	ctx context.Context,
	currentVersion uint,
	limit int,
) ([]*vaultDomain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + credentialColumns + `
			  FROM credentials WHERE key_version != ?
			  ORDER BY key_version ASC LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, currentVersion, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale credentials")
	}
	defer func() { _ = rows.Close() }()

	var credentials []*vaultDomain.Credential
	for rows.Next() {
		credential, err := scanMySQLCredential(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential")
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale credentials")
	}

	return credentials, nil
}

// UpdateEncryption replaces the encrypted payload of a credential.
func (r *MySQLCredentialRepository) UpdateEncryption(
	ctx context.Context,
	credential *vaultDomain.Credential,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE credentials
			  SET ciphertext = ?, nonce = ?, key_version = ?, updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		credential.Ciphertext,
		credential.Nonce,
		credential.KeyVersion,
		credential.UpdatedAt,
		credential.ID[:],
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
func (r *MySQLCredentialRepository) CountByKeyVersion(ctx context.Context) (map[uint]int64, error) {
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

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "error 1062")
}
