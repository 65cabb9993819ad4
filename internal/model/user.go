package model

import "time"

// Role values stored in users.role. The application knows exactly three
// roles; demo accounts additionally carry a row in demo_users with their
// resource limits.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleDemo  = "demo"
)

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column in the database. The json
// tags are omitted because these structs are used by the repository
// layer; handlers define separate response types with appropriate tags.
//
// Fields:
//
//	ID           – UUID primary key of the user.
//	Email        – unique lowercase email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – one of admin, user, demo.
//	DisplayName  – optional display name (nullable).
//	IsActive     – whether the account is active.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update (nullable).
//	LastLoginAt  – timestamp of last successful login (nullable).
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	DisplayName  *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	LastLoginAt  *time.Time
}

// UserStats aggregates user counts by role and activity.
type UserStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Admins int `json:"admins"`
	Users  int `json:"users"`
	Demos  int `json:"demos"`
}
