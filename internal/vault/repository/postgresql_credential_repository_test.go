package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

var credentialTestColumns = []string{
	"id", "owner_id", "type", "name", "host", "port", "username",
	"ciphertext", "nonce", "key_version", "status", "created_at", "updated_at",
}

func testCredential() *vaultDomain.Credential {
	now := time.Now().UTC()
	return &vaultDomain.Credential{
		ID:         uuid.Must(uuid.NewV7()),
		OwnerID:    "owner-1",
		Type:       vaultDomain.CredentialTypePassword,
		Name:       "prod-db-root",
		Host:       "db.internal",
		Port:       5432,
		Username:   "root",
		Ciphertext: []byte("ciphertext"),
		Nonce:      []byte("nonce1234567"),
		KeyVersion: 1,
		Status:     vaultDomain.CredentialStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func credentialRow(c *vaultDomain.Credential) []driverValue {
	return []driverValue{
		c.ID, c.OwnerID, string(c.Type), c.Name, c.Host, c.Port, c.Username,
		c.Ciphertext, c.Nonce, c.KeyVersion, string(c.Status), c.CreatedAt, c.UpdatedAt,
	}
}

type driverValue = driver.Value

func TestPostgreSQLCredentialRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLCredentialRepository(db)

	t.Run("success", func(t *testing.T) {
		credential := testCredential()

		mock.ExpectExec("INSERT INTO credentials").
			WithArgs(
				credential.ID, credential.OwnerID, string(credential.Type), credential.Name,
				credential.Host, credential.Port, credential.Username, credential.Ciphertext,
				credential.Nonce, credential.KeyVersion, string(credential.Status),
				credential.CreatedAt, credential.UpdatedAt,
			).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Create(context.Background(), credential)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name for owner", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO credentials").
			WillReturnError(errDuplicateKey{})

		err := repo.Create(context.Background(), testCredential())
		assert.ErrorIs(t, err, vaultDomain.ErrCredentialAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLCredentialRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLCredentialRepository(db)

	t.Run("found", func(t *testing.T) {
		credential := testCredential()
		rows := sqlmock.NewRows(credentialTestColumns).AddRow(credentialRow(credential)...)

		mock.ExpectQuery("SELECT (.+) FROM credentials WHERE id").
			WithArgs(credential.ID).
			WillReturnRows(rows)

		got, err := repo.GetByID(context.Background(), credential.ID)
		require.NoError(t, err)
		assert.Equal(t, credential.ID, got.ID)
		assert.Equal(t, credential.OwnerID, got.OwnerID)
		assert.Equal(t, credential.KeyVersion, got.KeyVersion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.Must(uuid.NewV7())

		mock.ExpectQuery("SELECT (.+) FROM credentials WHERE id").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(credentialTestColumns))

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, vaultDomain.ErrCredentialNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLCredentialRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLCredentialRepository(db)

	t.Run("scoped query filters by owner", func(t *testing.T) {
		credential := testCredential()
		rows := sqlmock.NewRows(credentialTestColumns).AddRow(credentialRow(credential)...)

		mock.ExpectQuery(`SELECT (.+) FROM credentials WHERE owner_id = \$1 ORDER BY name`).
			WithArgs("owner-1", 50, 0).
			WillReturnRows(rows)

		credentials, err := repo.List(context.Background(), vaultUseCase.Scope{OwnerID: "owner-1"}, 0, 50)
		require.NoError(t, err)
		require.Len(t, credentials, 1)
		assert.Equal(t, "owner-1", credentials[0].OwnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unscoped query has no owner filter", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM credentials ORDER BY name`).
			WithArgs(10, 5).
			WillReturnRows(sqlmock.NewRows(credentialTestColumns))

		credentials, err := repo.List(context.Background(), vaultUseCase.Scope{All: true}, 5, 10)
		require.NoError(t, err)
		assert.Empty(t, credentials)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLCredentialRepository_CountByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLCredentialRepository(db)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM credentials WHERE owner_id = \$1 GROUP BY status`).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("active", 3).
			AddRow("disabled", 1))

	counts, err := repo.CountByStatus(context.Background(), vaultUseCase.Scope{OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[vaultDomain.CredentialStatusActive])
	assert.Equal(t, int64(1), counts[vaultDomain.CredentialStatusDisabled])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLCredentialRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLCredentialRepository(db)

	t.Run("success", func(t *testing.T) {
		id := uuid.Must(uuid.NewV7())

		mock.ExpectExec("DELETE FROM credentials").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		id := uuid.Must(uuid.NewV7())

		mock.ExpectExec("DELETE FROM credentials").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), id)
		assert.ErrorIs(t, err, vaultDomain.ErrCredentialNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLCredentialRepository_CountByKeyVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLCredentialRepository(db)

	mock.ExpectQuery(`SELECT key_version, COUNT\(\*\) FROM credentials GROUP BY key_version`).
		WillReturnRows(sqlmock.NewRows([]string{"key_version", "count"}).
			AddRow(1, 7).
			AddRow(2, 42))

	counts, err := repo.CountByKeyVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), counts[1])
	assert.Equal(t, int64(42), counts[2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLCredentialRepository_UpdateEncryption(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLCredentialRepository(db)
	credential := testCredential()
	credential.KeyVersion = 2

	mock.ExpectExec("UPDATE credentials").
		WithArgs(
			credential.Ciphertext, credential.Nonce, credential.KeyVersion,
			credential.UpdatedAt, credential.ID,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdateEncryption(context.Background(), credential))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type errDuplicateKey struct{}

func (errDuplicateKey) Error() string {
	return `pq: duplicate key value violates unique constraint "credentials_owner_id_name_key"`
}
