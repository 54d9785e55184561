package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pitchside/internal/storage"
	"pitchside/internal/tournament/models"
)

// InMemoryStore is the development and unit-test implementation.
type InMemoryStore struct {
	mu          sync.RWMutex
	tournaments map[uuid.UUID]models.Tournament
	matches     map[uuid.UUID]models.Match
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tournaments: make(map[uuid.UUID]models.Tournament),
		matches:     make(map[uuid.UUID]models.Match),
	}
}

func (s *InMemoryStore) CreateTournament(_ context.Context, t models.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tournaments[t.ID]; exists {
		return storage.ErrConflict
	}
	s.tournaments[t.ID] = t
	return nil
}

func (s *InMemoryStore) GetTournament(_ context.Context, id uuid.UUID) (models.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tournaments[id]; ok {
		return t, nil
	}
	return models.Tournament{}, storage.ErrNotFound
}

func (s *InMemoryStore) CreateMatch(_ context.Context, m models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.matches[m.ID]; exists {
		return storage.ErrConflict
	}
	s.matches[m.ID] = m
	return nil
}

func (s *InMemoryStore) GetMatch(_ context.Context, id uuid.UUID) (models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.matches[id]; ok {
		return m, nil
	}
	return models.Match{}, storage.ErrNotFound
}

func (s *InMemoryStore) UpdateMatch(_ context.Context, m models.Match) (models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; !ok {
		return models.Match{}, storage.ErrNotFound
	}
	m.UpdatedAt = time.Now().UTC()
	s.matches[m.ID] = m
	return m, nil
}

func (s *InMemoryStore) ListMatches(_ context.Context, tournamentID uuid.UUID) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []models.Match
	for _, m := range s.matches {
		if m.TournamentID == tournamentID {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}
