package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pitchside/internal/identity/models"
	"pitchside/internal/storage"
	"pitchside/pkg/domain"
)

const uniqueViolation = "23505"

// PostgresUserStore persists identities in Postgres via pgx.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

// Schema is the DDL the store needs. Applied by migration tooling outside
// this package; exposed so integration tests can bootstrap a database.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func (s *PostgresUserStore) Create(ctx context.Context, user models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, role, password_hash, created_at, updated_at)
		 VALUES ($1, lower($2), $3, $4, $5, $6)`,
		user.ID, user.Email, string(user.Role), user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrConflict
		}
		return err
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT id, email, role, password_hash, created_at, updated_at
		 FROM users WHERE id = $1`, id))
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT id, email, role, password_hash, created_at, updated_at
		 FROM users WHERE email = lower($1)`, email))
}

func (s *PostgresUserStore) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) (models.User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`UPDATE users SET role = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING id, email, role, password_hash, created_at, updated_at`,
		id, string(role)))
}

func (s *PostgresUserStore) scanOne(row pgx.Row) (models.User, error) {
	var user models.User
	var role string
	err := row.Scan(&user.ID, &user.Email, &role, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.Role = domain.Role(role)
	return user, nil
}
