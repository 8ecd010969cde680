package domain

import (
	"errors"
	"time"
)

// User is the core account entity. Accounts are provisioned by admins (or the
// seed tool); the auth flows never create them implicitly.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the closed role enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !u.Role.Valid() {
		return errors.New("role must be admin, teacher, or student")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
