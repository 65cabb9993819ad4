package model

import "time"

// UserSettings holds one JSON blob per user. The blob is stored as text;
// parsing and field-level merging happen in the repository.
type UserSettings struct {
	UserID    string
	Settings  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SystemSetting is a system-wide key/value pair with an optional
// description and the id of the last author.
type SystemSetting struct {
	Key         string
	Value       string
	Description *string
	UpdatedBy   *string
	UpdatedAt   time.Time
}

// SettingsChange is one audit row in settings_history. Every settings
// write appends one of these; the table is append-only.
type SettingsChange struct {
	ID          uint64    `json:"id"`
	Type        string    `json:"type"` // "user" or "system"
	ReferenceID string    `json:"referenceId"`
	OldValue    *string   `json:"oldValue"`
	NewValue    string    `json:"newValue"`
	ChangedBy   *string   `json:"changedBy"`
	ChangedAt   time.Time `json:"changedAt"`
}
