// Package service implements registration, login, and token refresh for
// identities. Reads go through the storage retry wrapper; writes are executed
// exactly once.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pitchside/internal/identity/models"
	identitystore "pitchside/internal/identity/store"
	"pitchside/internal/storage"
	"pitchside/internal/token"
	"pitchside/pkg/domain"
	dErrors "pitchside/pkg/domain-errors"
)

// Service orchestrates identity operations.
type Service struct {
	users     identitystore.UserStore
	tokens    *token.Service
	logger    *slog.Logger
	retryOpts []storage.Option
}

func New(users identitystore.UserStore, tokens *token.Service, logger *slog.Logger, retryOpts ...storage.Option) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		logger:    logger.With("component", "identity"),
		retryOpts: retryOpts,
	}
}

// RegisterRequest carries a registration submission. Role defaults to PLAYER.
type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

func (r *RegisterRequest) normalize() {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if r.Role == "" {
		r.Role = domain.RolePlayer
	}
}

func (r *RegisterRequest) validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeBadRequest, "a valid email is required")
	}
	if len(r.Password) < 8 {
		return dErrors.New(dErrors.CodeBadRequest, "password must be at least 8 characters")
	}
	if !r.Role.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown role")
	}
	return nil
}

// Register creates an identity and issues its first token pair.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (models.PublicUser, token.Pair, error) {
	req.normalize()
	if err := req.validate(); err != nil {
		return models.PublicUser{}, token.Pair{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.PublicUser{}, token.Pair{}, dErrors.Wrap(dErrors.CodeInternal, "hash password", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Role:         req.Role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return models.PublicUser{}, token.Pair{}, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return models.PublicUser{}, token.Pair{}, err
	}

	pair, err := s.tokens.IssuePair(token.Identity{ID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return models.PublicUser{}, token.Pair{}, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user.Public(), pair, nil
}

// Login verifies credentials and issues a fresh token pair. The email lookup
// is a read and goes through the retry wrapper.
func (s *Service) Login(ctx context.Context, email, password string) (models.PublicUser, token.Pair, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := storage.WithRetry(ctx, func(ctx context.Context) (models.User, error) {
		return s.users.FindByEmail(ctx, email)
	}, s.retryOpts...)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.PublicUser{}, token.Pair{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return models.PublicUser{}, token.Pair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.PublicUser{}, token.Pair{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	pair, err := s.tokens.IssuePair(token.Identity{ID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return models.PublicUser{}, token.Pair{}, err
	}
	return user.Public(), pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The identity is
// re-resolved so a deleted user cannot keep refreshing (revocation by
// deletion), and current email/role are re-read rather than trusted from the
// old claims.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return token.Pair{}, dErrors.Wrap(dErrors.CodeUnauthorized, "invalid refresh token", err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return token.Pair{}, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	}

	user, err := storage.WithRetry(ctx, func(ctx context.Context) (models.User, error) {
		return s.users.FindByID(ctx, userID)
	}, s.retryOpts...)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return token.Pair{}, dErrors.New(dErrors.CodeUnauthorized, "user not found")
		}
		return token.Pair{}, err
	}

	return s.tokens.IssuePair(token.Identity{ID: user.ID, Email: user.Email, Role: user.Role})
}

// ChangeRole updates a user's role. Admin-gated at the transport layer.
func (s *Service) ChangeRole(ctx context.Context, id uuid.UUID, role domain.Role) (models.PublicUser, error) {
	if !role.Valid() {
		return models.PublicUser{}, dErrors.New(dErrors.CodeBadRequest, "unknown role")
	}
	user, err := s.users.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.PublicUser{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.PublicUser{}, err
	}
	s.logger.InfoContext(ctx, "user role changed", "user_id", id, "role", role)
	return user.Public(), nil
}

// Lookup resolves an identity by ID through the retry wrapper. Used by the
// session gate on every authenticated request.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (models.User, error) {
	return storage.WithRetry(ctx, func(ctx context.Context) (models.User, error) {
		return s.users.FindByID(ctx, id)
	}, s.retryOpts...)
}
