// Package models defines the identity domain records.
package models

import (
	"time"

	"github.com/google/uuid"

	"pitchside/pkg/domain"
)

// User is an authenticated principal. The password hash never leaves the
// identity domain; handlers serialize users through PublicUser.
type User struct {
	ID           uuid.UUID
	Email        string
	Role         domain.Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the externally visible projection of a User.
type PublicUser struct {
	ID    uuid.UUID   `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// Public strips credentials from a User.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Role: u.Role}
}
