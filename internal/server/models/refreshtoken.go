package models

import "time"

// RefreshToken is one outstanding refresh token in the registry. Token is the
// exact signed string handed to the client and is globally unique.
type RefreshToken struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the record is no longer usable at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
