// Package pkce implements RFC 7636 Proof Key for Code Exchange material for
// the Google sign-in flow: state, code verifier, and S256 code challenge.
// The plain challenge method is not supported.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"net/url"

	"coursedesk/backend/internal/security"
)

const (
	// VerifierMinLen and VerifierMaxLen are the RFC 7636 bounds on a code verifier.
	VerifierMinLen = 43
	VerifierMaxLen = 128
)

// ErrInvalidVerifier is returned when a presented code verifier is missing or
// outside the RFC 7636 length bounds (a tampered or expired attempt).
var ErrInvalidVerifier = errors.New("invalid pkce code verifier")

// GenerateState returns an opaque CSRF-binding value: 32 random bytes,
// base64url-encoded. The client must return it unchanged on callback.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return security.Base64URLEncode(b), nil
}

// GenerateCodeVerifier returns a code verifier normalized into the
// [43, 128] character window. The primary 32-byte encoding already carries
// the required entropy; padding with extra random material and truncating at
// the maximum are shape normalization, not security decisions.
func GenerateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	verifier := security.Base64URLEncode(b)
	for len(verifier) < VerifierMinLen {
		extra := make([]byte, 8)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		verifier += security.Base64URLEncode(extra)
	}
	if len(verifier) > VerifierMaxLen {
		verifier = verifier[:VerifierMaxLen]
	}
	return verifier, nil
}

// DeriveCodeChallenge computes the S256 code challenge for verifier:
// base64url(SHA-256(verifier)).
func DeriveCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return security.Base64URLEncode(sum[:])
}

// ValidateCodeVerifier rejects verifiers that are absent or outside the
// RFC 7636 bounds. Used on the callback leg before the code exchange.
func ValidateCodeVerifier(verifier string) error {
	if len(verifier) < VerifierMinLen || len(verifier) > VerifierMaxLen {
		return ErrInvalidVerifier
	}
	return nil
}

// GoogleAuthorizeEndpoint is Google's OAuth 2.0 authorization endpoint.
const GoogleAuthorizeEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"

// Authorization holds the outcome of BuildGoogleAuthorizationURL. State and
// CodeVerifier must be stored by the caller for the callback leg; this
// package keeps no per-attempt state.
type Authorization struct {
	URL          string
	State        string
	CodeVerifier string
}

// ErrInvalidRedirectURI is returned when the configured redirect URI is
// missing or not an absolute URL. This is operator misconfiguration, not
// user error.
var ErrInvalidRedirectURI = errors.New("redirect uri must be an absolute url")

// BuildGoogleAuthorizationURL validates redirectURI and returns the Google
// authorization URL carrying client id, scopes, offline access, the
// generated state, the S256 code challenge, and a forced account chooser.
// redirectURI is validated before any random generation.
func BuildGoogleAuthorizationURL(clientID, redirectURI string) (*Authorization, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || redirectURI == "" || !u.IsAbs() || u.Host == "" {
		return nil, ErrInvalidRedirectURI
	}

	state, err := GenerateState()
	if err != nil {
		return nil, err
	}
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}

	authURL, err := url.Parse(GoogleAuthorizeEndpoint)
	if err != nil {
		return nil, err
	}
	params := authURL.Query()
	params.Set("client_id", clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", "openid email profile")
	params.Set("access_type", "offline")
	params.Set("prompt", "select_account")
	params.Set("state", state)
	params.Set("code_challenge", DeriveCodeChallenge(verifier))
	params.Set("code_challenge_method", "S256")
	authURL.RawQuery = params.Encode()

	return &Authorization{
		URL:          authURL.String(),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}
