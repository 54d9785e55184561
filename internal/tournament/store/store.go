// Package store persists tournaments and matches. Implementations: in-memory
// and Postgres.
package store

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/google/uuid"

	"pitchside/internal/tournament/models"
)

// Store is the persistence boundary for tournaments and matches. Get and
// List operations are safe to retry; Create and Update must be called once.
type Store interface {
	CreateTournament(ctx context.Context, t models.Tournament) error
	GetTournament(ctx context.Context, id uuid.UUID) (models.Tournament, error)

	CreateMatch(ctx context.Context, m models.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (models.Match, error)
	UpdateMatch(ctx context.Context, m models.Match) (models.Match, error)
	ListMatches(ctx context.Context, tournamentID uuid.UUID) ([]models.Match, error)
}
