package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coursedesk/backend/internal/audit"
	identitydomain "coursedesk/backend/internal/identity/domain"
	"coursedesk/backend/internal/oauth"
	"coursedesk/backend/internal/pkce"
	"coursedesk/backend/internal/security"
	"coursedesk/backend/internal/session"
	userdomain "coursedesk/backend/internal/user/domain"
)

// OAuthService implements Google sign-in on top of the password flow's
// session issuance. Accounts are never auto-provisioned: a Google login only
// succeeds for an email that already has an active account.
type OAuthService struct {
	auth     *AuthService
	provider oauth.ProviderClient
	states   oauth.StateStore
	cfg      oauth.ProviderConfig
}

// NewOAuthService returns an OAuthService for the given provider
// configuration. Empty TokenURL/UserInfoURL fall back to Google's endpoints.
func NewOAuthService(auth *AuthService, provider oauth.ProviderClient, states oauth.StateStore, cfg oauth.ProviderConfig) *OAuthService {
	if cfg.TokenURL == "" {
		cfg.TokenURL = oauth.GoogleTokenEndpoint
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = oauth.GoogleUserInfoEndpoint
	}
	return &OAuthService{auth: auth, provider: provider, states: states, cfg: cfg}
}

func (s *OAuthService) configured() bool {
	return s.cfg.ClientID != "" && s.cfg.RedirectURI != "" && s.states != nil
}

// BeginGoogleAuthorization starts a Google sign-in: builds the authorization
// URL with a fresh state and PKCE challenge, records the pending attempt, and
// returns the redirect target. Misconfiguration fails before any random
// material is generated.
func (s *OAuthService) BeginGoogleAuthorization(ctx context.Context) (*pkce.Authorization, error) {
	if !s.configured() {
		return nil, ErrOAuthNotConfigured
	}
	authz, err := pkce.BuildGoogleAuthorizationURL(s.cfg.ClientID, s.cfg.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthNotConfigured, err)
	}
	attempt := oauth.Attempt{
		State:        authz.State,
		CodeVerifier: authz.CodeVerifier,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.states.Save(ctx, attempt); err != nil {
		return nil, err
	}
	return authz, nil
}

// ClaimAttempt fetches and retires the pending attempt for state. A miss
// returns (nil, nil); the caller treats it as a state mismatch.
func (s *OAuthService) ClaimAttempt(ctx context.Context, state string) (*oauth.Attempt, error) {
	if !s.configured() {
		return nil, ErrOAuthNotConfigured
	}
	return s.states.Claim(ctx, state)
}

// CompleteGoogleCallback finishes a Google sign-in: checks the callback
// against the pending attempt, exchanges the code, resolves the verified
// email to an existing account, records the provider link, and opens a
// session exactly as password login does.
func (s *OAuthService) CompleteGoogleCallback(ctx context.Context, code, state string, attempt *oauth.Attempt, client session.ClientContext) (*AuthResult, error) {
	if !s.configured() {
		return nil, ErrOAuthNotConfigured
	}
	if attempt == nil || !security.TimingSafeMatch(attempt.State, state) {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, ErrInvalidCallback
	}
	if err := pkce.ValidateCodeVerifier(attempt.CodeVerifier); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	tokens, err := s.provider.ExchangeCode(ctx, s.cfg, code, attempt.CodeVerifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	info, err := s.provider.FetchUserInfo(ctx, s.cfg, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if info.Email == "" || !info.EmailVerified || info.Subject == "" {
		s.auth.logEvent(ctx, "", audit.ActionLoginFailure, client, "google account not verified")
		return nil, ErrInvalidCredentials
	}

	user, err := s.auth.userRepo.GetByEmail(ctx, info.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		s.auth.logEvent(ctx, "", audit.ActionLoginFailure, client, "google email not provisioned")
		return nil, ErrInvalidCredentials
	}

	if err := s.linkIdentity(ctx, user.ID, info.Subject); err != nil {
		if err == ErrInvalidCredentials {
			s.auth.logEvent(ctx, user.ID, audit.ActionLoginFailure, client, "google subject mismatch")
		}
		return nil, err
	}

	result, err := s.auth.openSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.auth.logEvent(ctx, user.ID, audit.ActionOAuthLogin, client, "")
	return result, nil
}

// linkIdentity records the Google subject for the user on first successful
// sign-in. A subject that differs from an existing link means the Google
// account is not the one that owns this email here.
func (s *OAuthService) linkIdentity(ctx context.Context, userID, subject string) error {
	existing, err := s.auth.identityRepo.GetByUserAndProvider(ctx, userID, identitydomain.IdentityProviderGoogle)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.ProviderID != subject {
			return ErrInvalidCredentials
		}
		return nil
	}
	return s.auth.identityRepo.Create(ctx, &identitydomain.Identity{
		ID:         uuid.New().String(),
		UserID:     userID,
		Provider:   identitydomain.IdentityProviderGoogle,
		ProviderID: subject,
		CreatedAt:  time.Now().UTC(),
	})
}
