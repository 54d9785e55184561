//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitchside/internal/identity/models"
	"pitchside/internal/identity/store"
	"pitchside/internal/storage"
	"pitchside/internal/testutil/containers"
	"pitchside/pkg/domain"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresUserStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.StartPostgres(s.T(), store.Schema)
	s.store = store.NewPostgresUserStore(s.postgres.Pool)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "users"))
}

func newUser(email string) models.User {
	return models.User{
		ID:           uuid.New(),
		Email:        email,
		Role:         domain.RolePlayer,
		PasswordHash: "$2a$10$irrelevant",
	}
}

func (s *PostgresUserStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	user := newUser("captain@example.com")
	s.Require().NoError(s.store.Create(ctx, user))

	byID, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Email, byID.Email)

	byEmail, err := s.store.FindByEmail(ctx, user.Email)
	s.Require().NoError(err)
	s.Equal(user.ID, byEmail.ID)

	_, err = s.store.FindByID(ctx, uuid.New())
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *PostgresUserStoreSuite) TestUpdateRole() {
	ctx := context.Background()
	user := newUser("captain@example.com")
	s.Require().NoError(s.store.Create(ctx, user))

	updated, err := s.store.UpdateRole(ctx, user.ID, domain.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(domain.RoleAdmin, updated.Role)

	_, err = s.store.UpdateRole(ctx, uuid.New(), domain.RoleAdmin)
	s.ErrorIs(err, storage.ErrNotFound)
}

// TestConcurrentDuplicateEmail verifies the unique constraint surfaces as
// ErrConflict with exactly one winner under contention.
func (s *PostgresUserStoreSuite) TestConcurrentDuplicateEmail() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newUser("contended@example.com"))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, storage.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}
