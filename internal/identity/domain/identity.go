package domain

import "time"

// Identity represents a user's linked identity (local password or Google).
type Identity struct {
	ID           string
	UserID       string
	Provider     IdentityProvider
	ProviderID   string // email for local, Google subject for google
	PasswordHash string // empty if not local
	CreatedAt    time.Time
}

type IdentityProvider string

const (
	IdentityProviderLocal  IdentityProvider = "local"
	IdentityProviderGoogle IdentityProvider = "google"
)
