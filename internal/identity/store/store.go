// Package store persists identity records. Implementations: in-memory for
// unit tests and development, Postgres for production.
package store

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/google/uuid"

	"pitchside/internal/identity/models"
	"pitchside/pkg/domain"
)

// UserStore is the persistence boundary for identities. FindByID and
// FindByEmail are safe to retry; Create and UpdateRole are not and must be
// called once.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) (models.User, error)
}
