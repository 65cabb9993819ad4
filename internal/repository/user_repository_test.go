package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecloudhq/cloud-agents/internal/utils"
)

func userRows(id, email, hash, role string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "role", "display_name",
		"is_active", "created_at", "updated_at", "last_login_at",
	}).AddRow(id, email, hash, role, nil, active, time.Now(), nil, nil)
}

func TestUserRepoListAppliesFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	role := "demo"
	active := true
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT "+userColumns+" FROM users WHERE 1=1 AND role=? AND is_active=? ORDER BY created_at DESC LIMIT ? OFFSET ?")).
		WithArgs(role, active, 100, 0).
		WillReturnRows(userRows("u1", "d@example.com", "x", "demo", true))

	users, err := repo.List(context.Background(), ListFilter{Role: &role, IsActive: &active})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "demo", users[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoVerifyPassword(t *testing.T) {
	hash, err := utils.HashPassword("correct-horse", 4)
	require.NoError(t, err)

	selectQ := regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE email=? LIMIT 1")

	t.Run("success stamps last login", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewUserRepo(db)

		mock.ExpectQuery(selectQ).WithArgs("a@example.com").
			WillReturnRows(userRows("u1", "a@example.com", hash, "user", true))
		mock.ExpectExec(regexp.QuoteMeta(
			"UPDATE users SET last_login_at=NOW(), updated_at=NOW() WHERE id=?")).
			WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))

		u, err := repo.VerifyPassword(context.Background(), "a@example.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive account fails even with right password", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewUserRepo(db)

		mock.ExpectQuery(selectQ).WithArgs("a@example.com").
			WillReturnRows(userRows("u1", "a@example.com", hash, "user", false))

		_, err = repo.VerifyPassword(context.Background(), "a@example.com", "correct-horse")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewUserRepo(db)

		mock.ExpectQuery(selectQ).WithArgs("a@example.com").
			WillReturnRows(userRows("u1", "a@example.com", hash, "user", true))

		_, err = repo.VerifyPassword(context.Background(), "a@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email collapses to invalid credentials", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewUserRepo(db)

		mock.ExpectQuery(selectQ).WithArgs("ghost@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err = repo.VerifyPassword(context.Background(), "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserRepoDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=?")).
		WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "ghost"), ErrNotFound)
}
