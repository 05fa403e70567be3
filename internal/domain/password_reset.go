package domain

import "time"

// PasswordResetToken is a single-use credential letting a staff member choose a new
// password. Only the hash of the token is stored.
type PasswordResetToken struct {
	ID        string
	StaffID   string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token may still be redeemed at now.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t != nil && t.UsedAt == nil && now.Before(t.ExpiresAt)
}
