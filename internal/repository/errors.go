// Package repository defines the storage layer: thin structs over
// *sql.DB issuing prepared statements. Sentinel errors declared here let
// handlers map failure scenarios to HTTP statuses without inspecting
// driver errors.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist. Handlers translate
// this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update collides with the
// unique email index. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrInvalidCredentials is returned by password verification for a wrong
// password or a deactivated account. The two cases are deliberately not
// distinguished.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInviteNotFound is returned when an invite code is unknown.
var ErrInviteNotFound = errors.New("invite not found")

// ErrInviteUnavailable is returned when an invite exists but can no
// longer be redeemed: deactivated, expired, or exhausted.
var ErrInviteUnavailable = errors.New("invite not available")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidJSON is returned when a settings payload is not a valid
// JSON document.
var ErrInvalidJSON = errors.New("invalid json document")
