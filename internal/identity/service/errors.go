package service

import "errors"

// Sentinel errors for the auth flows; handlers map them to HTTP statuses.
var (
	// ErrInvalidCredentials covers every password or Google login failure the
	// caller is allowed to see: unknown email, disabled account, wrong
	// password, unverified or unprovisioned Google account. One error value
	// for all of them keeps account existence unguessable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSession covers refresh with an unknown, superseded, revoked,
	// or expired token.
	ErrInvalidSession = errors.New("invalid or expired session")
	// ErrInvalidState is returned when the callback state does not match a
	// pending authorization attempt, or the attempt's verifier is out of
	// bounds (a tampered or expired attempt). An authentication failure:
	// the caller only sees the uniform credentials message.
	ErrInvalidState = errors.New("authorization state mismatch")
	// ErrInvalidCallback is returned when the callback is missing the
	// authorization code. Malformed input, not an authentication verdict.
	ErrInvalidCallback = errors.New("invalid authorization callback")
	// ErrOAuthNotConfigured is returned when Google sign-in is requested but
	// the provider credentials are absent or unusable.
	ErrOAuthNotConfigured = errors.New("google sign-in is not configured")
	// ErrProviderUnavailable wraps failures talking to the identity provider.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Classification buckets an auth error for the boundary layer.
type Classification string

const (
	ClassConfiguration  Classification = "configuration"
	ClassValidation     Classification = "validation"
	ClassAuthentication Classification = "authentication"
	ClassUnavailable    Classification = "unavailable"
)

// Classify maps an error from the auth flows to its classification. Anything
// unrecognized is a storage or infrastructure failure and counts as
// unavailable, never as an authentication verdict.
func Classify(err error) Classification {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidSession), errors.Is(err, ErrInvalidState):
		return ClassAuthentication
	case errors.Is(err, ErrInvalidCallback):
		return ClassValidation
	case errors.Is(err, ErrOAuthNotConfigured):
		return ClassConfiguration
	default:
		return ClassUnavailable
	}
}

// ClientMessage returns the message safe to show the caller for err. Internal
// detail stays in logs. Authentication failures never say why: state
// mismatches and tampered attempts read the same as bad credentials.
func ClientMessage(err error) string {
	switch Classify(err) {
	case ClassAuthentication:
		if errors.Is(err, ErrInvalidSession) {
			return "invalid or expired session"
		}
		return "invalid credentials"
	case ClassValidation:
		return "invalid authorization callback"
	case ClassConfiguration:
		return "google sign-in is not available"
	default:
		return "service temporarily unavailable"
	}
}
