package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pitchside/internal/identity/models"
	"pitchside/internal/storage"
	"pitchside/pkg/domain"
)

// InMemoryUserStore keeps the development and unit-test implementation
// lightweight. It intentionally favors clarity over performance.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]models.User
	byEmail map[string]uuid.UUID
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[uuid.UUID]models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return storage.ErrConflict
	}
	s.users[user.ID] = user
	s.byEmail[key] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return models.User{}, storage.ErrNotFound
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[strings.ToLower(email)]; ok {
		return s.users[id], nil
	}
	return models.User{}, storage.ErrNotFound
}

func (s *InMemoryUserStore) UpdateRole(_ context.Context, id uuid.UUID, role domain.Role) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user
	return user, nil
}

// Delete removes a user. Deleting an identity is the system's only form of
// token revocation, so the session gate must treat a missing user as
// unauthorized even when the presented token is valid.
func (s *InMemoryUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.byEmail, strings.ToLower(user.Email))
	delete(s.users, id)
	return nil
}
