package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitchside/internal/identity/models"
	"pitchside/internal/storage"
	"pitchside/pkg/domain"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = NewInMemoryUserStore()
}

func (s *InMemoryUserStoreSuite) seed() models.User {
	user := models.User{
		ID:    uuid.New(),
		Email: "captain@example.com",
		Role:  domain.RoleCaptain,
	}
	s.Require().NoError(s.store.Create(context.Background(), user))
	return user
}

func (s *InMemoryUserStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	user := s.seed()

	byID, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user, byID)

	byEmail, err := s.store.FindByEmail(ctx, user.Email)
	s.Require().NoError(err)
	s.Equal(user, byEmail)

	_, err = s.store.FindByID(ctx, uuid.New())
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestEmailUniquenessIsCaseInsensitive() {
	ctx := context.Background()
	s.seed()

	err := s.store.Create(ctx, models.User{ID: uuid.New(), Email: "CAPTAIN@example.com"})
	s.ErrorIs(err, storage.ErrConflict)

	found, err := s.store.FindByEmail(ctx, "Captain@Example.COM")
	s.NoError(err)
	s.Equal("captain@example.com", found.Email)
}

func (s *InMemoryUserStoreSuite) TestUpdateRole() {
	ctx := context.Background()
	user := s.seed()

	updated, err := s.store.UpdateRole(ctx, user.ID, domain.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(domain.RoleAdmin, updated.Role)

	_, err = s.store.UpdateRole(ctx, uuid.New(), domain.RoleAdmin)
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestDeleteFreesEmail() {
	ctx := context.Background()
	user := s.seed()

	s.Require().NoError(s.store.Delete(ctx, user.ID))

	_, err := s.store.FindByID(ctx, user.ID)
	s.ErrorIs(err, storage.ErrNotFound)

	// The email can be registered again after deletion.
	s.NoError(s.store.Create(ctx, models.User{ID: uuid.New(), Email: user.Email}))

	s.ErrorIs(s.store.Delete(ctx, user.ID), storage.ErrNotFound)
}
