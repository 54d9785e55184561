package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pitchside/internal/storage"
	"pitchside/internal/tournament/models"
)

const uniqueViolation = "23505"

// PostgresStore persists tournaments and matches via pgx. Score lines and
// player stats are stored as JSONB; they are read and written as a unit with
// the match row, never queried into.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL the store needs; exposed for integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS tournaments (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	id            UUID PRIMARY KEY,
	tournament_id UUID NOT NULL REFERENCES tournaments(id),
	home_team     TEXT NOT NULL,
	away_team     TEXT NOT NULL,
	status        TEXT NOT NULL,
	home_score    JSONB NOT NULL,
	away_score    JSONB NOT NULL,
	player_stats  JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS matches_tournament_idx ON matches (tournament_id);`

func (s *PostgresStore) CreateTournament(ctx context.Context, t models.Tournament) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tournaments (id, name, status, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, string(t.Status), t.CreatedAt,
	)
	return mapWriteErr(err)
}

func (s *PostgresStore) GetTournament(ctx context.Context, id uuid.UUID) (models.Tournament, error) {
	var t models.Tournament
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, status, created_at FROM tournaments WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tournament{}, storage.ErrNotFound
		}
		return models.Tournament{}, err
	}
	t.Status = models.TournamentStatus(status)
	return t, nil
}

func (s *PostgresStore) CreateMatch(ctx context.Context, m models.Match) error {
	homeScore, awayScore, stats, err := marshalMatchJSON(m)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO matches
		 (id, tournament_id, home_team, away_team, status, home_score, away_score, player_stats, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.TournamentID, m.HomeTeam, m.AwayTeam, string(m.Status),
		homeScore, awayScore, stats, m.CreatedAt, m.UpdatedAt,
	)
	return mapWriteErr(err)
}

func (s *PostgresStore) GetMatch(ctx context.Context, id uuid.UUID) (models.Match, error) {
	return scanMatch(s.pool.QueryRow(ctx, matchSelect+` WHERE id = $1`, id))
}

func (s *PostgresStore) UpdateMatch(ctx context.Context, m models.Match) (models.Match, error) {
	homeScore, awayScore, stats, err := marshalMatchJSON(m)
	if err != nil {
		return models.Match{}, err
	}
	return scanMatch(s.pool.QueryRow(ctx,
		`UPDATE matches
		 SET status = $2, home_score = $3, away_score = $4, player_stats = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING id, tournament_id, home_team, away_team, status, home_score, away_score, player_stats, created_at, updated_at`,
		m.ID, string(m.Status), homeScore, awayScore, stats,
	))
}

func (s *PostgresStore) ListMatches(ctx context.Context, tournamentID uuid.UUID) ([]models.Match, error) {
	rows, err := s.pool.Query(ctx, matchSelect+` WHERE tournament_id = $1 ORDER BY created_at`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

const matchSelect = `SELECT id, tournament_id, home_team, away_team, status,
	home_score, away_score, player_stats, created_at, updated_at FROM matches`

func scanMatch(row pgx.Row) (models.Match, error) {
	var m models.Match
	var status string
	var homeScore, awayScore, stats []byte
	err := row.Scan(&m.ID, &m.TournamentID, &m.HomeTeam, &m.AwayTeam, &status,
		&homeScore, &awayScore, &stats, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Match{}, storage.ErrNotFound
		}
		return models.Match{}, err
	}
	m.Status = models.MatchStatus(status)
	if err := json.Unmarshal(homeScore, &m.HomeScore); err != nil {
		return models.Match{}, err
	}
	if err := json.Unmarshal(awayScore, &m.AwayScore); err != nil {
		return models.Match{}, err
	}
	if err := json.Unmarshal(stats, &m.PlayerStats); err != nil {
		return models.Match{}, err
	}
	return m, nil
}

func marshalMatchJSON(m models.Match) (homeScore, awayScore, stats []byte, err error) {
	if homeScore, err = json.Marshal(m.HomeScore); err != nil {
		return nil, nil, nil, err
	}
	if awayScore, err = json.Marshal(m.AwayScore); err != nil {
		return nil, nil, nil, err
	}
	if m.PlayerStats == nil {
		stats = []byte(`[]`)
		return homeScore, awayScore, stats, nil
	}
	if stats, err = json.Marshal(m.PlayerStats); err != nil {
		return nil, nil, nil, err
	}
	return homeScore, awayScore, stats, nil
}

func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrConflict
	}
	return err
}
