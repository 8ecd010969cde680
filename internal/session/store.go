// Package session owns the refresh-session lifecycle: issuance, sliding
// rotation, lookup by token hash, and revocation. Raw refresh tokens exist
// only in this package's return values; storage sees hashes exclusively.
package session

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"coursedesk/backend/internal/security"
	"coursedesk/backend/internal/session/domain"
	"coursedesk/backend/internal/session/repository"
)

// maxUserAgentLen bounds the audit user-agent column.
const maxUserAgentLen = 256

// ClientContext carries the request metadata recorded on a session for audit.
// Neither field participates in authorization decisions.
type ClientContext struct {
	UserAgent string
	IP        string
}

// Credential is the raw refresh token handed back to the caller, paired with
// its absolute expiry.
type Credential struct {
	RefreshToken string
	ExpiresAt    time.Time
}

// Store is the session store adapter. It hashes tokens, computes the sliding
// expiry window, and sanitizes client context before anything reaches the
// repository.
type Store struct {
	repo       repository.Repository
	refreshTTL time.Duration
	now        func() time.Time
}

// NewStore returns a Store persisting through repo with the given refresh TTL
// (sliding: recomputed from "now" on every rotation).
func NewStore(repo repository.Repository, refreshTTL time.Duration) *Store {
	return &Store{repo: repo, refreshTTL: refreshTTL, now: func() time.Time { return time.Now().UTC() }}
}

// PersistSession creates a new session row for userID with a fresh token and
// returns the raw token plus expiry. The raw token is never stored.
func (s *Store) PersistSession(ctx context.Context, userID, refreshToken string, client ClientContext) (*Credential, string, error) {
	now := s.now()
	expiresAt := now.Add(s.refreshTTL)
	sess := &domain.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		RefreshTokenHash: security.HashValue(refreshToken),
		ExpiresAt:        expiresAt,
		UserAgent:        truncateUserAgent(client.UserAgent),
		IPHash:           security.HashIP(client.IP),
		CreatedAt:        now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, "", err
	}
	return &Credential{RefreshToken: refreshToken, ExpiresAt: expiresAt}, sess.ID, nil
}

// RotateSession overwrites the session's token hash and client context and
// restarts the expiry window from "now". The single-row update makes the old
// token unusable the instant the new one exists.
func (s *Store) RotateSession(ctx context.Context, sessionID, refreshToken string, client ClientContext) (*Credential, error) {
	expiresAt := s.now().Add(s.refreshTTL)
	err := s.repo.UpdateRefreshToken(ctx, sessionID,
		security.HashValue(refreshToken), expiresAt,
		truncateUserAgent(client.UserAgent), security.HashIP(client.IP))
	if err != nil {
		return nil, err
	}
	return &Credential{RefreshToken: refreshToken, ExpiresAt: expiresAt}, nil
}

// FindLiveByToken hashes the presented raw token and returns the matching
// live session. Unknown, superseded, revoked, and expired tokens all return
// nil with no error.
func (s *Store) FindLiveByToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.repo.GetLiveByTokenHash(ctx, security.HashValue(refreshToken), s.now())
}

// Revoke marks the session revoked. Idempotent: revoking an already-revoked
// or unknown session succeeds and leaves the first revoked_at untouched.
func (s *Store) Revoke(ctx context.Context, sessionID string) error {
	return s.repo.Revoke(ctx, sessionID, s.now())
}

// ListByUser returns the user's sessions, live and dead, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.repo.ListByUser(ctx, userID)
}

// RevokeAllByUser revokes every live session the user holds.
func (s *Store) RevokeAllByUser(ctx context.Context, userID string) error {
	return s.repo.RevokeAllByUser(ctx, userID, s.now())
}

// RevokeByToken revokes the session holding the presented raw token, if any.
// Unknown tokens are a no-op, keeping logout idempotent at the flow level.
func (s *Store) RevokeByToken(ctx context.Context, refreshToken string) error {
	sess, err := s.repo.GetLiveByTokenHash(ctx, security.HashValue(refreshToken), s.now())
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	return s.repo.Revoke(ctx, sess.ID, s.now())
}

// truncateUserAgent cuts ua to at most maxUserAgentLen bytes without
// splitting a rune; a byte-sliced multibyte UA would be invalid UTF-8 and
// rejected by the database.
func truncateUserAgent(ua string) string {
	if len(ua) <= maxUserAgentLen {
		return ua
	}
	cut := maxUserAgentLen
	for cut > 0 && !utf8.RuneStart(ua[cut]) {
		cut--
	}
	return ua[:cut]
}
