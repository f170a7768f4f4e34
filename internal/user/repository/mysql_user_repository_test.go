package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/user/domain"
)

func TestMySQLUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLUserRepository(db)
	user := testUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(user.ID[:], user.Name, user.Email, user.Password, string(user.Role)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), user)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUserRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLUserRepository(db)
	columns := []string{"id", "name", "email", "password", "role", "created_at", "updated_at"}

	t.Run("found", func(t *testing.T) {
		user := testUser()
		rows := sqlmock.NewRows(columns).
			AddRow(user.ID[:], user.Name, user.Email, user.Password, string(user.Role), user.CreatedAt, user.UpdatedAt)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(user.ID[:]).
			WillReturnRows(rows)

		got, err := repo.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Email, got.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.Must(uuid.NewV7())

		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(id[:]).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLUserRepository_GetRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLUserRepository(db)
	user := testUser()

	mock.ExpectQuery("SELECT role FROM users").
		WithArgs(user.ID[:]).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))

	role, err := repo.GetRole(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, authDomain.RoleAdmin, role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsMySQLUniqueViolation(t *testing.T) {
	assert.False(t, isMySQLUniqueViolation(nil))
	assert.True(t, isMySQLUniqueViolation(errDuplicateEntry{}))
	assert.False(t, isMySQLUniqueViolation(assert.AnError))
}

type errDuplicateEntry struct{}

func (errDuplicateEntry) Error() string {
	return "Error 1062 (23000): Duplicate entry 'jane@example.com' for key 'users.email'"
}
