package utils // package utils provides helper functions for hashing and code generation

import (
	"crypto/rand" // secure random number generation
	"encoding/hex"
	"strings"
)

// NewInviteCode returns a random, URL-safe invite code of the form
// "demo-XXXXXXXXXXXXXXXX" (16 hex characters). Codes are generated from
// crypto/rand so collisions are practically impossible; the database
// still enforces uniqueness on the column.
func NewInviteCode() (string, error) {
	raw, err := RandomHex(8)
	if err != nil {
		return "", err
	}
	return "demo-" + strings.ToUpper(raw), nil
}

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
