package repository

import (
	"context"
	"time"

	"coursedesk/backend/internal/session/domain"
)

// Repository defines persistence for refresh sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetLiveByTokenHash returns the session whose current refresh token hash
	// matches and which is neither revoked nor expired at "now".
	GetLiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// UpdateRefreshToken overwrites hash, expiry, and client context for the
	// session id in a single statement and clears revoked_at. The row update
	// is the rotation's atomicity boundary.
	UpdateRefreshToken(ctx context.Context, sessionID, tokenHash string, expiresAt time.Time, userAgent, ipHash string) error
	// ListByUser returns all sessions for the user, newest first, revoked and
	// expired ones included.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) error
}
