package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/codecloudhq/cloud-agents/internal/model"
)

// SettingsRepo stores per-user and system-wide settings as JSON blobs
// and appends an audit row to settings_history on every write.
type SettingsRepo struct{ DB *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{DB: db} }

// GetUserSettings returns the user's blob, or an empty object when the
// user has never saved any settings.
func (r *SettingsRepo) GetUserSettings(ctx context.Context, userID string) (model.UserSettings, error) {
	var s model.UserSettings
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, settings, created_at, updated_at FROM user_settings WHERE user_id=? LIMIT 1",
		userID).Scan(&s.UserID, &s.Settings, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.UserSettings{UserID: userID, Settings: "{}"}, nil
	}
	if err != nil {
		return model.UserSettings{}, err
	}
	return s, nil
}

// PutUserSettings replaces the user's blob wholesale and records the
// change. settings must be a valid JSON document.
func (r *SettingsRepo) PutUserSettings(ctx context.Context, userID, settings string, changedBy *string) error {
	if !json.Valid([]byte(settings)) {
		return ErrInvalidJSON
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	old := r.currentUserBlob(ctx, tx, userID)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, settings) VALUES (?,?)
		 ON DUPLICATE KEY UPDATE settings=VALUES(settings)`,
		userID, settings); err != nil {
		return err
	}
	if err := appendHistory(ctx, tx, "user", userID, old, settings, changedBy); err != nil {
		return err
	}
	return tx.Commit()
}

// MergeUserSettings applies a partial update: fields present in patch
// overwrite the stored blob field by field, recursing into nested
// objects so a patch of {"ui":{"theme":"dark"}} keeps the user's other
// ui keys intact. A null in the patch deletes the key.
func (r *SettingsRepo) MergeUserSettings(ctx context.Context, userID, patch string, changedBy *string) (string, error) {
	var patchDoc map[string]interface{}
	if err := json.Unmarshal([]byte(patch), &patchDoc); err != nil {
		return "", ErrInvalidJSON
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	old := r.currentUserBlob(ctx, tx, userID)
	base := map[string]interface{}{}
	if old != nil {
		if err := json.Unmarshal([]byte(*old), &base); err != nil {
			base = map[string]interface{}{}
		}
	}
	merged, err := json.Marshal(mergeObjects(base, patchDoc))
	if err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, settings) VALUES (?,?)
		 ON DUPLICATE KEY UPDATE settings=VALUES(settings)`,
		userID, string(merged)); err != nil {
		return "", err
	}
	if err := appendHistory(ctx, tx, "user", userID, old, string(merged), changedBy); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return string(merged), nil
}

// GetSystemSetting fetches one system setting by key.
func (r *SettingsRepo) GetSystemSetting(ctx context.Context, key string) (model.SystemSetting, error) {
	var (
		s           model.SystemSetting
		description sql.NullString
		updatedBy   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT setting_key, value, description, updated_by, updated_at FROM system_settings WHERE setting_key=? LIMIT 1",
		key).Scan(&s.Key, &s.Value, &description, &updatedBy, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.SystemSetting{}, ErrNotFound
	}
	if err != nil {
		return model.SystemSetting{}, err
	}
	if description.Valid {
		s.Description = &description.String
	}
	if updatedBy.Valid {
		s.UpdatedBy = &updatedBy.String
	}
	return s, nil
}

// ListSystemSettings returns all system settings ordered by key.
func (r *SettingsRepo) ListSystemSettings(ctx context.Context) ([]model.SystemSetting, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT setting_key, value, description, updated_by, updated_at FROM system_settings ORDER BY setting_key ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SystemSetting
	for rows.Next() {
		var (
			s           model.SystemSetting
			description sql.NullString
			updatedBy   sql.NullString
		)
		if err := rows.Scan(&s.Key, &s.Value, &description, &updatedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			s.Description = &description.String
		}
		if updatedBy.Valid {
			s.UpdatedBy = &updatedBy.String
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PutSystemSetting upserts a system setting and records the change.
func (r *SettingsRepo) PutSystemSetting(ctx context.Context, key, value string, description, changedBy *string) error {
	if !json.Valid([]byte(value)) {
		return ErrInvalidJSON
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var old *string
	var prev string
	if err := tx.QueryRowContext(ctx,
		"SELECT value FROM system_settings WHERE setting_key=?", key).Scan(&prev); err == nil {
		old = &prev
	} else if err != sql.ErrNoRows {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO system_settings (setting_key, value, description, updated_by) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE value=VALUES(value),
			description=COALESCE(VALUES(description), description),
			updated_by=VALUES(updated_by)`,
		key, value, description, changedBy); err != nil {
		return err
	}
	if err := appendHistory(ctx, tx, "system", key, old, value, changedBy); err != nil {
		return err
	}
	return tx.Commit()
}

// History returns the audit trail for one settings document, newest
// first.
func (r *SettingsRepo) History(ctx context.Context, typ, referenceID string, limit int) ([]model.SettingsChange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, type, reference_id, old_value, new_value, changed_by, changed_at
		 FROM settings_history WHERE type=? AND reference_id=?
		 ORDER BY changed_at DESC, id DESC LIMIT ?`,
		typ, referenceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SettingsChange
	for rows.Next() {
		var (
			c         model.SettingsChange
			oldValue  sql.NullString
			changedBy sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Type, &c.ReferenceID, &oldValue,
			&c.NewValue, &changedBy, &c.ChangedAt); err != nil {
			return nil, err
		}
		if oldValue.Valid {
			c.OldValue = &oldValue.String
		}
		if changedBy.Valid {
			c.ChangedBy = &changedBy.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SettingsRepo) currentUserBlob(ctx context.Context, tx *sql.Tx, userID string) *string {
	var blob string
	if err := tx.QueryRowContext(ctx,
		"SELECT settings FROM user_settings WHERE user_id=?", userID).Scan(&blob); err != nil {
		return nil
	}
	return &blob
}

func appendHistory(ctx context.Context, tx *sql.Tx, typ, refID string, oldValue *string, newValue string, changedBy *string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO settings_history (type, reference_id, old_value, new_value, changed_by)
		 VALUES (?,?,?,?,?)`,
		typ, refID, oldValue, newValue, changedBy)
	return err
}

// mergeObjects overlays patch onto base. Nested objects merge
// recursively; any other value replaces the base value; an explicit
// null removes the key.
func mergeObjects(base, patch map[string]interface{}) map[string]interface{} {
	for k, v := range patch {
		if v == nil {
			delete(base, k)
			continue
		}
		pv, pok := v.(map[string]interface{})
		bv, bok := base[k].(map[string]interface{})
		if pok && bok {
			base[k] = mergeObjects(bv, pv)
			continue
		}
		base[k] = v
	}
	return base
}
