package domain

import "time"

// RefreshSession is the single ledger row per account holding the hash of
// the only refresh token that may currently be rotated.
type RefreshSession struct {
	AccountID int64
	TokenHash string // argon2id PHC of the refresh token
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s RefreshSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AuthResult is what a successful sign-up, sign-in or refresh hands back.
// The refresh token never goes into a response body.
type AuthResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	Account          Account
}
