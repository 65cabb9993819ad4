package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/codecloudhq/cloud-agents/internal/model"
	"github.com/codecloudhq/cloud-agents/internal/utils"
)

// UserRepo provides CRUD operations on the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,role,display_name,is_active,created_at,updated_at,last_login_at"

// Create inserts a user and returns the stored record.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, displayName *string, cost int) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role, display_name) VALUES (?,?,?,?,?)",
		id, email, hash, role, displayName)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// ListFilter narrows List results. Nil fields are not applied.
type ListFilter struct {
	Role     *string
	IsActive *bool
	Limit    int
	Offset   int
}

// List returns users matching the filter, newest first. Limit defaults
// to 100 so an unbounded listing cannot be requested by accident.
func (r *UserRepo) List(ctx context.Context, f ListFilter) ([]model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE 1=1"
	args := []interface{}{}
	if f.Role != nil {
		query += " AND role=?"
		args = append(args, *f.Role)
	}
	if f.IsActive != nil {
		query += " AND is_active=?"
		args = append(args, *f.IsActive)
	}
	query += " ORDER BY created_at DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields and returns the updated record.
type UserUpdate struct {
	Email       *string
	Role        *string
	DisplayName *string
	IsActive    *bool
}

func (r *UserRepo) Update(ctx context.Context, id string, upd UserUpdate) (model.User, error) {
	sets := []string{"updated_at=NOW()"}
	args := []interface{}{}
	if upd.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if upd.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *upd.Role)
	}
	if upd.DisplayName != nil {
		sets = append(sets, "display_name=?")
		args = append(args, *upd.DisplayName)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *upd.IsActive)
	}
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 affected rows both for a missing row and a
		// no-op update; resolve the ambiguity with a read.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return model.User{}, getErr
		}
	}
	return r.GetByID(ctx, id)
}

// ChangePassword rehashes and stores a new password for the user.
func (r *UserRepo) ChangePassword(ctx context.Context, id, newPassword string, cost int) error {
	hash, err := utils.HashPassword(newPassword, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=NOW() WHERE id=?", hash, id)
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

// Delete hard-deletes a user row.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// VerifyPassword authenticates by email+password and stamps
// last_login_at on success. Wrong password and deactivated account both
// yield ErrInvalidCredentials: a disabled user must not learn whether
// their password is still correct.
func (r *UserRepo) VerifyPassword(ctx context.Context, email, password string) (model.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if !u.IsActive {
		return model.User{}, ErrInvalidCredentials
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET last_login_at=NOW(), updated_at=NOW() WHERE id=?", u.ID)
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Stats returns user counts by role and activity in one round trip.
func (r *UserRepo) Stats(ctx context.Context) (model.UserStats, error) {
	var s model.UserStats
	err := r.DB.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(is_active=1),0),
		COALESCE(SUM(role='admin'),0),
		COALESCE(SUM(role='user'),0),
		COALESCE(SUM(role='demo'),0)
		FROM users`).Scan(&s.Total, &s.Active, &s.Admins, &s.Users, &s.Demos)
	return s, err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanUser(row rowScanner) (model.User, error) {
	var (
		u           model.User
		displayName sql.NullString
		updatedAt   sql.NullTime
		lastLoginAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &displayName,
		&u.IsActive, &u.CreatedAt, &updatedAt, &lastLoginAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if displayName.Valid {
		u.DisplayName = &displayName.String
	}
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}
	if lastLoginAt.Valid {
		u.LastLoginAt = &lastLoginAt.Time
	}
	return u, nil
}

// isDuplicate detects a MySQL duplicate-key violation (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
