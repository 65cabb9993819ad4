package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/codecloudhq/cloud-agents/internal/model"
	"github.com/codecloudhq/cloud-agents/internal/utils"
)

// InviteRepo owns demo invites and the demo user accounts redeemed from
// them. Redemption is the one operation in the system that needs true
// race-safety: the used_count increment is a guarded UPDATE so two
// concurrent redemptions of a near-exhausted invite can never both
// succeed for the last slot.
type InviteRepo struct{ DB *sql.DB }

func NewInviteRepo(db *sql.DB) *InviteRepo { return &InviteRepo{DB: db} }

const inviteColumns = "id,code,created_by,credit_limit_usd,max_messages,max_days,max_uses,used_count,active,expires_at,created_at"

// InviteSpec carries the admin-provided limits for a new invite.
type InviteSpec struct {
	CreditLimitUSD float64
	MaxMessages    int
	MaxDays        int
	MaxUses        int
	ExpiresInDays  int
}

// CreateInvite generates a unique code and persists the invite with
// active=true and usedCount=0.
func (r *InviteRepo) CreateInvite(ctx context.Context, adminID string, spec InviteSpec) (model.DemoInvite, error) {
	code, err := utils.NewInviteCode()
	if err != nil {
		return model.DemoInvite{}, err
	}
	id := uuid.NewString()
	expiresAt := time.Now().UTC().Add(time.Duration(spec.ExpiresInDays) * 24 * time.Hour)
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO demo_invites (id, code, created_by, credit_limit_usd, max_messages, max_days, max_uses, expires_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		id, code, adminID, spec.CreditLimitUSD, spec.MaxMessages, spec.MaxDays, spec.MaxUses, expiresAt)
	if err != nil {
		return model.DemoInvite{}, err
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches an invite by primary key.
func (r *InviteRepo) GetByID(ctx context.Context, id string) (model.DemoInvite, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM demo_invites WHERE id=? LIMIT 1", id)
	return scanInvite(row)
}

// GetByCode fetches an invite by its redemption code.
func (r *InviteRepo) GetByCode(ctx context.Context, code string) (model.DemoInvite, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM demo_invites WHERE code=? LIMIT 1", code)
	inv, err := scanInvite(row)
	if err == ErrNotFound {
		return model.DemoInvite{}, ErrInviteNotFound
	}
	return inv, err
}

// ListByCreator returns all invites created by the given admin, newest first.
func (r *InviteRepo) ListByCreator(ctx context.Context, adminID string) ([]model.DemoInvite, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+inviteColumns+" FROM demo_invites WHERE created_by=? ORDER BY created_at DESC", adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DemoInvite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// DeactivateInvite moves an invite to its terminal deactivated state.
// There is no way back to active.
func (r *InviteRepo) DeactivateInvite(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE demo_invites SET active=0 WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Redeem consumes one slot of the invite and creates the demo account,
// all inside a single transaction:
//
//  1. read the invite to learn its limits (unknown code -> ErrInviteNotFound),
//  2. guarded UPDATE that increments used_count only while the invite is
//     active, unexpired and below max_uses; zero affected rows means the
//     invite is not redeemable right now (ErrInviteUnavailable),
//  3. insert the users row (role demo) and the demo_users limits row.
//
// The guarded UPDATE carries the whole availability check so concurrent
// redemptions serialize on the invite row inside InnoDB; only one of two
// racers for the last slot commits.
func (r *InviteRepo) Redeem(ctx context.Context, code, email, passwordHash string) (model.DemoUser, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.DemoUser{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM demo_invites WHERE code=? LIMIT 1", code)
	inv, err := scanInvite(row)
	if err != nil {
		if err == ErrNotFound {
			return model.DemoUser{}, ErrInviteNotFound
		}
		return model.DemoUser{}, err
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE demo_invites SET used_count=used_count+1
		 WHERE id=? AND active=1 AND expires_at>? AND used_count<max_uses`,
		inv.ID, now)
	if err != nil {
		return model.DemoUser{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.DemoUser{}, err
	} else if n == 0 {
		return model.DemoUser{}, ErrInviteUnavailable
	}

	userID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role) VALUES (?,?,?,'demo')",
		userID, email, passwordHash); err != nil {
		if isDuplicate(err) {
			return model.DemoUser{}, ErrEmailExists
		}
		return model.DemoUser{}, err
	}

	expiresAt := now.Add(time.Duration(inv.MaxDays) * 24 * time.Hour)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO demo_users (user_id, invite_id, email, credit_limit_usd, max_messages, expires_at)
		 VALUES (?,?,?,?,?,?)`,
		userID, inv.ID, email, inv.CreditLimitUSD, inv.MaxMessages, expiresAt); err != nil {
		return model.DemoUser{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.DemoUser{}, err
	}
	return model.DemoUser{
		UserID:         userID,
		InviteID:       inv.ID,
		Email:          email,
		CreditLimitUSD: inv.CreditLimitUSD,
		MaxMessages:    inv.MaxMessages,
		ExpiresAt:      expiresAt,
		Active:         true,
		CreatedAt:      now,
	}, nil
}

const demoUserColumns = "user_id,invite_id,email,credit_limit_usd,credit_used_usd,max_messages,messages_used,expires_at,active,blocked,created_at"

// GetDemoUser fetches the limits row for a demo account.
func (r *InviteRepo) GetDemoUser(ctx context.Context, userID string) (model.DemoUser, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+demoUserColumns+" FROM demo_users WHERE user_id=? LIMIT 1", userID)
	return scanDemoUser(row)
}

// DeactivateDemoUser disables both the limits row and the login account.
func (r *InviteRepo) DeactivateDemoUser(ctx context.Context, userID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE demo_users SET active=0 WHERE user_id=?", userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM demo_users WHERE user_id=?", userID).Scan(&one); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET is_active=0, updated_at=NOW() WHERE id=?", userID); err != nil {
		return err
	}
	return tx.Commit()
}

// ExpireOldDemoUsers deactivates every demo user whose expiry has
// passed. The WHERE clause restricts the sweep to still-active rows so
// running it twice reports the second batch as zero (idempotent).
func (r *InviteRepo) ExpireOldDemoUsers(ctx context.Context) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE users u JOIN demo_users d ON u.id=d.user_id
		 SET u.is_active=0, u.updated_at=NOW()
		 WHERE d.expires_at<? AND d.active=1`, now); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE demo_users SET active=0 WHERE expires_at<? AND active=1", now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// AddUsage records chat consumption against a demo account. The caller
// checks the limits before dispatching; this only bumps the counters.
func (r *InviteRepo) AddUsage(ctx context.Context, userID string, costUSD float64, messages int) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE demo_users SET credit_used_usd=credit_used_usd+?, messages_used=messages_used+? WHERE user_id=?",
		costUSD, messages, userID)
	return err
}

// Stats aggregates the demo system for admin reporting.
func (r *InviteRepo) Stats(ctx context.Context) (model.DemoStats, error) {
	var s model.DemoStats
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(active=1),0) FROM demo_invites").
		Scan(&s.TotalInvites, &s.ActiveInvites)
	if err != nil {
		return s, err
	}
	err = r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(active=1),0), COALESCE(SUM(credit_used_usd),0) FROM demo_users").
		Scan(&s.TotalDemoUsers, &s.ActiveDemoUsers, &s.TotalCreditUSD)
	return s, err
}

func scanInvite(row rowScanner) (model.DemoInvite, error) {
	var inv model.DemoInvite
	err := row.Scan(&inv.ID, &inv.Code, &inv.CreatedBy, &inv.CreditLimitUSD,
		&inv.MaxMessages, &inv.MaxDays, &inv.MaxUses, &inv.UsedCount,
		&inv.Active, &inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.DemoInvite{}, ErrNotFound
		}
		return model.DemoInvite{}, err
	}
	return inv, nil
}

func scanDemoUser(row rowScanner) (model.DemoUser, error) {
	var d model.DemoUser
	err := row.Scan(&d.UserID, &d.InviteID, &d.Email, &d.CreditLimitUSD,
		&d.CreditUsedUSD, &d.MaxMessages, &d.MessagesUsed, &d.ExpiresAt,
		&d.Active, &d.Blocked, &d.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.DemoUser{}, ErrNotFound
		}
		return model.DemoUser{}, err
	}
	return d, nil
}
