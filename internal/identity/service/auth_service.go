// Package service implements the authentication flows: password login,
// refresh-token rotation, logout, and Google sign-in. Flows fail with one of
// the sentinel errors in errors.go; storage errors pass through untouched.
package service

import (
	"context"
	"strings"
	"time"

	"coursedesk/backend/internal/audit"
	identitydomain "coursedesk/backend/internal/identity/domain"
	"coursedesk/backend/internal/security"
	"coursedesk/backend/internal/session"
	userdomain "coursedesk/backend/internal/user/domain"
)

// AuthResult holds the outcome of a successful Login, Refresh, or Google
// callback: a signed access token and the raw refresh token with its expiry.
type AuthResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	UserID           string
	Role             userdomain.Role
	SessionID        string
}

// UserRepo is the minimal user repository needed by the auth flows.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// IdentityRepo is the minimal identity repository needed by the auth flows.
type IdentityRepo interface {
	GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error)
	Create(ctx context.Context, i *identitydomain.Identity) error
}

// AuthService implements password login, refresh rotation, and logout.
type AuthService struct {
	userRepo     UserRepo
	identityRepo IdentityRepo
	sessions     *session.Store
	hasher       *security.Hasher
	tokens       *security.TokenProvider
	audit        audit.AuditLogger
}

// NewAuthService returns an AuthService with the given dependencies.
// auditLogger may be nil.
func NewAuthService(
	userRepo UserRepo,
	identityRepo IdentityRepo,
	sessions *session.Store,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditLogger audit.AuditLogger,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		identityRepo: identityRepo,
		sessions:     sessions,
		hasher:       hasher,
		tokens:       tokens,
		audit:        auditLogger,
	}
}

// Login authenticates with email and password and, on success, opens a
// session and returns tokens. Unknown email, disabled account, and wrong
// password all return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, client session.ClientContext) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		s.logEvent(ctx, "", audit.ActionLoginFailure, client, "missing credentials")
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		s.logEvent(ctx, "", audit.ActionLoginFailure, client, "unknown or inactive account")
		return nil, ErrInvalidCredentials
	}
	ident, err := s.identityRepo.GetByUserAndProvider(ctx, user.ID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.PasswordHash == "" {
		s.logEvent(ctx, user.ID, audit.ActionLoginFailure, client, "no local credential")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		s.logEvent(ctx, user.ID, audit.ActionLoginFailure, client, "password mismatch")
		return nil, ErrInvalidCredentials
	}
	result, err := s.openSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, audit.ActionLoginSuccess, client, "")
	return result, nil
}

// Refresh exchanges a live refresh token for a new token pair. The presented
// token is retired in the same store update that installs its replacement, so
// it is single use. Unknown, superseded, revoked, and expired tokens are all
// ErrInvalidSession.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client session.ClientContext) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidSession
	}
	sess, err := s.sessions.FindLiveByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidSession
	}
	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		_ = s.sessions.Revoke(ctx, sess.ID)
		return nil, ErrInvalidSession
	}
	newToken, err := security.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	cred, err := s.sessions.RotateSession(ctx, sess.ID, newToken, client)
	if err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(user.ID, string(user.Role), sess.ID)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, audit.ActionRefresh, client, "")
	return &AuthResult{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     cred.RefreshToken,
		RefreshExpiresAt: cred.ExpiresAt,
		UserID:           user.ID,
		Role:             user.Role,
		SessionID:        sess.ID,
	}, nil
}

// Logout revokes the session holding the refresh token. Idempotent: empty,
// unknown, and already-revoked tokens all succeed silently.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, client session.ClientContext) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.RevokeByToken(ctx, refreshToken); err != nil {
		return err
	}
	s.logEvent(ctx, "", audit.ActionLogout, client, "")
	return nil
}

// Sessions lists the user's sessions, live and dead.
func (s *AuthService) Sessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionInfo{
			ID:        sess.ID,
			UserAgent: sess.UserAgent,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
			Live:      sess.Live(now),
		})
	}
	return out, nil
}

// LogoutAll revokes every live session the user holds.
func (s *AuthService) LogoutAll(ctx context.Context, userID string, client session.ClientContext) error {
	if err := s.sessions.RevokeAllByUser(ctx, userID); err != nil {
		return err
	}
	s.logEvent(ctx, userID, audit.ActionLogout, client, "all sessions")
	return nil
}

// SessionInfo is the client-visible view of a session. Token hashes and IP
// hashes stay server side.
type SessionInfo struct {
	ID        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	Live      bool
}

// openSession issues a refresh token, persists the session, and signs an
// access token. Shared by password login and the Google callback.
func (s *AuthService) openSession(ctx context.Context, user *userdomain.User, client session.ClientContext) (*AuthResult, error) {
	refreshToken, err := security.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	cred, sessionID, err := s.sessions.PersistSession(ctx, user.ID, refreshToken, client)
	if err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(user.ID, string(user.Role), sessionID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     cred.RefreshToken,
		RefreshExpiresAt: cred.ExpiresAt,
		UserID:           user.ID,
		Role:             user.Role,
		SessionID:        sessionID,
	}, nil
}

func (s *AuthService) logEvent(ctx context.Context, userID, action string, client session.ClientContext, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, userID, action, client.UserAgent, client.IP, metadata)
}
