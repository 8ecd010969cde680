package domain

import "time"

// Session is one refresh-token session row. At most one live (non-revoked,
// non-expired) refresh token hash maps to a session id at a time: rotation
// overwrites RefreshTokenHash in place rather than creating a new row, so a
// replayed pre-rotation token can never be exchanged again.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string // SHA-256 hex of the current raw token; the raw token is never persisted
	ExpiresAt        time.Time
	UserAgent        string     // truncated client descriptor; audit only, never used for authorization
	IPHash           string     // hashed client IP; same audit-only role
	RevokedAt        *time.Time // nil when not revoked; non-nil is terminal
	CreatedAt        time.Time
}

// Live reports whether the session is usable at the given instant.
func (s *Session) Live(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && s.ExpiresAt.After(now)
}
