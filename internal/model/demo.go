package model

import "time"

// DemoInvite mirrors the `demo_invites` table. An invite is created by an
// admin and bounds the demo accounts redeemed from it. The `available`
// flag is never stored; it is derived from active, expiry and usage at
// read time so it can never go stale.
type DemoInvite struct {
	ID             string
	Code           string
	CreatedBy      string
	CreditLimitUSD float64
	MaxMessages    int
	MaxDays        int
	MaxUses        int
	UsedCount      int
	Active         bool
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// Available reports whether the invite can still be redeemed at time now.
func (i DemoInvite) Available(now time.Time) bool {
	return i.Active && now.Before(i.ExpiresAt) && i.UsedCount < i.MaxUses
}

// DemoUser mirrors the `demo_users` table: per-account limits copied from
// the invite at redemption time plus running usage counters. The identity
// itself (email, password hash) lives in `users`; this row is keyed by
// the same UUID.
type DemoUser struct {
	UserID         string
	InviteID       string
	Email          string
	CreditLimitUSD float64
	CreditUsedUSD  float64
	MaxMessages    int
	MessagesUsed   int
	ExpiresAt      time.Time
	Active         bool
	Blocked        bool
	CreatedAt      time.Time
}

// DemoStats summarizes the demo system for admin reporting.
type DemoStats struct {
	TotalInvites    int     `json:"totalInvites"`
	ActiveInvites   int     `json:"activeInvites"`
	TotalDemoUsers  int     `json:"totalDemoUsers"`
	ActiveDemoUsers int     `json:"activeDemoUsers"`
	TotalCreditUSD  float64 `json:"totalCreditUsedUSD"`
}
