// Package model defines the data structures passed between layers and
// serialized onto the wire.
package model

import "time"

// DefaultSessionKey identifies the one streaming account this site reads
// playback for. Repositories are keyed by it so a multi-account deployment
// only has to pick different keys.
const DefaultSessionKey = "default_user"

// TokenRecord is one authenticated session with the streaming platform.
//
// AccessToken is only usable while now < ExpiresAt; an expired record must be
// refreshed before it is sent upstream. A zero ExpiresAt counts as expired,
// which is how records synthesized from a configured refresh token force an
// immediate refresh.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token can no longer be used at now.
func (t *TokenRecord) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
