package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitchside/internal/storage"
	"pitchside/internal/tournament/models"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) seedTournament() models.Tournament {
	t := models.Tournament{
		ID:        uuid.New(),
		Name:      "Winter Cup",
		Status:    models.TournamentActive,
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreateTournament(context.Background(), t))
	return t
}

func (s *InMemoryStoreSuite) seedMatch(tournamentID uuid.UUID, createdAt time.Time) models.Match {
	m := models.Match{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		HomeTeam:     "Northern Knights",
		AwayTeam:     "Harbour Hawks",
		Status:       models.MatchScheduled,
		CreatedAt:    createdAt,
	}
	s.Require().NoError(s.store.CreateMatch(context.Background(), m))
	return m
}

func (s *InMemoryStoreSuite) TestTournamentLifecycle() {
	ctx := context.Background()
	t := s.seedTournament()

	got, err := s.store.GetTournament(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(t, got)

	s.ErrorIs(s.store.CreateTournament(ctx, t), storage.ErrConflict)

	_, err = s.store.GetTournament(ctx, uuid.New())
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestMatchLifecycle() {
	ctx := context.Background()
	t := s.seedTournament()
	m := s.seedMatch(t.ID, time.Now().UTC())

	got, err := s.store.GetMatch(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(m.ID, got.ID)

	got.HomeScore = models.TeamScore{Runs: 42, Wickets: 1, Overs: 5}
	updated, err := s.store.UpdateMatch(ctx, got)
	s.Require().NoError(err)
	s.Equal(42, updated.HomeScore.Runs)
	s.False(updated.UpdatedAt.IsZero())

	_, err = s.store.UpdateMatch(ctx, models.Match{ID: uuid.New()})
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListMatchesOrdersByCreation() {
	ctx := context.Background()
	t := s.seedTournament()
	other := s.seedTournament()

	base := time.Now().UTC()
	second := s.seedMatch(t.ID, base.Add(time.Hour))
	first := s.seedMatch(t.ID, base)
	s.seedMatch(other.ID, base)

	matches, err := s.store.ListMatches(ctx, t.ID)
	s.Require().NoError(err)
	s.Require().Len(matches, 2)
	s.Equal(first.ID, matches[0].ID)
	s.Equal(second.ID, matches[1].ID)
}
