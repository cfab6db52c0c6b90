package tokens

import "time"

// Token is a single-use bearer credential bound to one document request.
// Only the hash of the secret is ever persisted.
type Token struct {
	ID           string
	DocRequestID string
	TokenHash    string
	ExpiresAt    time.Time
	UsedAt       *time.Time
	IsRevoked    bool
	CreatedAt    time.Time
}

// Resolvable reports whether the token itself can still be redeemed at the
// given instant. The owning request's status is checked separately.
func (t Token) Resolvable(now time.Time) bool {
	return !t.IsRevoked && t.UsedAt == nil && now.Before(t.ExpiresAt)
}
