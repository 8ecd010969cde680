// seed inserts development accounts for local testing. Run via ./scripts/seed.sh.
// Idempotent: a user whose email already exists is skipped.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"coursedesk/backend/internal/config"
	"coursedesk/backend/internal/db"
	identitydomain "coursedesk/backend/internal/identity/domain"
	identityrepo "coursedesk/backend/internal/identity/repository"
	"coursedesk/backend/internal/security"
	userdomain "coursedesk/backend/internal/user/domain"
	userrepo "coursedesk/backend/internal/user/repository"
)

const devPassword = "password123"

var devAccounts = []struct {
	email string
	name  string
	role  userdomain.Role
}{
	{"admin@example.com", "Dev Admin", userdomain.RoleAdmin},
	{"teacher@example.com", "Dev Teacher", userdomain.RoleTeacher},
	{"student@example.com", "Dev Student", userdomain.RoleStudent},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("seed: DATABASE_URL is not set")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("seed: database: %v", err)
	}
	defer database.Close()

	users := userrepo.NewPostgresRepository(database)
	identities := identityrepo.NewPostgresRepository(database)
	hasher := security.NewHasher(cfg.BcryptCost)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, acct := range devAccounts {
		if err := seedAccount(ctx, users, identities, hasher, acct.email, acct.name, acct.role); err != nil {
			log.Fatalf("seed: %s: %v", acct.email, err)
		}
	}
	log.Printf("seed: done (password for all accounts: %s)", devPassword)
}

func seedAccount(ctx context.Context, users userrepo.Repository, identities identityrepo.Repository, hasher *security.Hasher, email, name string, role userdomain.Role) error {
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, skipping", email)
		return nil
	}

	now := time.Now().UTC()
	u := &userdomain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      role,
		Status:    userdomain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if err := users.Create(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ident := &identitydomain.Identity{
		ID:           uuid.NewString(),
		UserID:       u.ID,
		Provider:     identitydomain.IdentityProviderLocal,
		ProviderID:   email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := identities.Create(ctx, ident); err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	log.Printf("seed: created %s (%s)", email, role)
	return nil
}
