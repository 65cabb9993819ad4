package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecloudhq/cloud-agents/internal/model"
)

func inviteRows(id, code string, maxUses, usedCount int, active bool, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "code", "created_by", "credit_limit_usd", "max_messages",
		"max_days", "max_uses", "used_count", "active", "expires_at", "created_at",
	}).AddRow(id, code, "admin-1", 5.0, 100, 7, maxUses, usedCount, active, expiresAt, time.Now())
}

func TestInviteRepoRedeem(t *testing.T) {
	selectQ := regexp.QuoteMeta("SELECT " + inviteColumns + " FROM demo_invites WHERE code=? LIMIT 1")
	updateQ := regexp.QuoteMeta(`UPDATE demo_invites SET used_count=used_count+1
		 WHERE id=? AND active=1 AND expires_at>? AND used_count<max_uses`)

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewInviteRepo(db)

		future := time.Now().Add(24 * time.Hour)
		mock.ExpectBegin()
		mock.ExpectQuery(selectQ).WithArgs("demo-ABC").
			WillReturnRows(inviteRows("inv-1", "demo-ABC", 3, 1, true, future))
		mock.ExpectExec(updateQ).
			WithArgs("inv-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(
			"INSERT INTO users (id, email, password_hash, role) VALUES (?,?,?,'demo')")).
			WithArgs(sqlmock.AnyArg(), "new@example.com", "hash").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(
			`INSERT INTO demo_users (user_id, invite_id, email, credit_limit_usd, max_messages, expires_at)
			 VALUES (?,?,?,?,?,?)`)).
			WithArgs(sqlmock.AnyArg(), "inv-1", "new@example.com", 5.0, 100, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		du, err := repo.Redeem(context.Background(), "demo-ABC", "new@example.com", "hash")
		require.NoError(t, err)
		assert.Equal(t, "inv-1", du.InviteID)
		assert.Equal(t, 5.0, du.CreditLimitUSD)
		assert.Equal(t, 100, du.MaxMessages)
		assert.True(t, du.Active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exhausted invite rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewInviteRepo(db)

		// The stale read still sees a free slot; the guarded UPDATE is
		// what decides, and here it affects zero rows.
		future := time.Now().Add(24 * time.Hour)
		mock.ExpectBegin()
		mock.ExpectQuery(selectQ).WithArgs("demo-ABC").
			WillReturnRows(inviteRows("inv-1", "demo-ABC", 3, 2, true, future))
		mock.ExpectExec(updateQ).
			WithArgs("inv-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err = repo.Redeem(context.Background(), "demo-ABC", "new@example.com", "hash")
		assert.ErrorIs(t, err, ErrInviteUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown code", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewInviteRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(selectQ).WithArgs("demo-NOPE").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err = repo.Redeem(context.Background(), "demo-NOPE", "new@example.com", "hash")
		assert.ErrorIs(t, err, ErrInviteNotFound)
	})

	t.Run("duplicate email rolls back the slot", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewInviteRepo(db)

		future := time.Now().Add(24 * time.Hour)
		mock.ExpectBegin()
		mock.ExpectQuery(selectQ).WithArgs("demo-ABC").
			WillReturnRows(inviteRows("inv-1", "demo-ABC", 3, 0, true, future))
		mock.ExpectExec(updateQ).
			WithArgs("inv-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(
			"INSERT INTO users (id, email, password_hash, role) VALUES (?,?,?,'demo')")).
			WithArgs(sqlmock.AnyArg(), "taken@example.com", "hash").
			WillReturnError(errDuplicate{})
		mock.ExpectRollback()

		_, err = repo.Redeem(context.Background(), "demo-ABC", "taken@example.com", "hash")
		assert.ErrorIs(t, err, ErrEmailExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

type errDuplicate struct{}

func (errDuplicate) Error() string { return "Error 1062: Duplicate entry" }

func TestInviteRepoExpireSweep(t *testing.T) {
	usersQ := regexp.QuoteMeta(`UPDATE users u JOIN demo_users d ON u.id=d.user_id
		 SET u.is_active=0, u.updated_at=NOW()
		 WHERE d.expires_at<? AND d.active=1`)
	demoQ := regexp.QuoteMeta("UPDATE demo_users SET active=0 WHERE expires_at<? AND active=1")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewInviteRepo(db)

	// First sweep catches two rows.
	mock.ExpectBegin()
	mock.ExpectExec(usersQ).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(demoQ).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.ExpireOldDemoUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Second sweep sees nothing: the active=1 guard makes it idempotent.
	mock.ExpectBegin()
	mock.ExpectExec(usersQ).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(demoQ).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err = repo.ExpireOldDemoUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteAvailable(t *testing.T) {
	now := time.Now()
	base := model.DemoInvite{
		Active:    true,
		MaxUses:   3,
		UsedCount: 1,
		ExpiresAt: now.Add(time.Hour),
	}

	assert.True(t, base.Available(now))

	expired := base
	expired.ExpiresAt = now.Add(-time.Minute)
	assert.False(t, expired.Available(now))

	exhausted := base
	exhausted.UsedCount = 3
	assert.False(t, exhausted.Available(now))

	inactive := base
	inactive.Active = false
	assert.False(t, inactive.Available(now))
}
