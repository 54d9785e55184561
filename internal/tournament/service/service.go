// Package service implements tournament and match operations. Every mutation
// that changes broadcastable state emits a live event on the match or
// tournament topic after the write commits. Reads go through the storage
// retry wrapper; writes are executed exactly once.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pitchside/internal/live"
	"pitchside/internal/storage"
	"pitchside/internal/tournament/cache"
	"pitchside/internal/tournament/models"
	tournamentstore "pitchside/internal/tournament/store"
	"pitchside/pkg/domain"
	dErrors "pitchside/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Emitter announces domain events to live subscribers. Satisfied by
// live.Dispatcher.
type Emitter interface {
	Emit(ctx context.Context, topic domain.Topic, eventName string, payload any)
}

// Service orchestrates tournament and match state.
type Service struct {
	store     tournamentstore.Store
	snapshots *cache.SnapshotCache
	emitter   Emitter
	logger    *slog.Logger
	retryOpts []storage.Option
}

func New(store tournamentstore.Store, snapshots *cache.SnapshotCache, emitter Emitter, logger *slog.Logger, retryOpts ...storage.Option) *Service {
	return &Service{
		store:     store,
		snapshots: snapshots,
		emitter:   emitter,
		logger:    logger.With("component", "tournament"),
		retryOpts: retryOpts,
	}
}

// CreateTournamentRequest carries a tournament creation submission.
type CreateTournamentRequest struct {
	Name string `json:"name"`
}

// CreateTournament registers a new tournament in UPCOMING state.
func (s *Service) CreateTournament(ctx context.Context, req CreateTournamentRequest) (models.Tournament, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Tournament{}, dErrors.New(dErrors.CodeBadRequest, "tournament name is required")
	}

	t := models.Tournament{
		ID:        uuid.New(),
		Name:      name,
		Status:    models.TournamentUpcoming,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateTournament(ctx, t); err != nil {
		return models.Tournament{}, err
	}

	s.logger.InfoContext(ctx, "tournament created", "tournament_id", t.ID, "name", t.Name)
	return t, nil
}

// GetTournament fetches a tournament through the retry wrapper.
func (s *Service) GetTournament(ctx context.Context, id uuid.UUID) (models.Tournament, error) {
	t, err := storage.WithRetry(ctx, func(ctx context.Context) (models.Tournament, error) {
		return s.store.GetTournament(ctx, id)
	}, s.retryOpts...)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Tournament{}, dErrors.New(dErrors.CodeNotFound, "tournament not found")
		}
		return models.Tournament{}, err
	}
	return t, nil
}

// AddMatchRequest carries a fixture submission.
type AddMatchRequest struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
}

func (r *AddMatchRequest) validate() error {
	if strings.TrimSpace(r.HomeTeam) == "" || strings.TrimSpace(r.AwayTeam) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "both team names are required")
	}
	if strings.EqualFold(strings.TrimSpace(r.HomeTeam), strings.TrimSpace(r.AwayTeam)) {
		return dErrors.New(dErrors.CodeBadRequest, "a team cannot play itself")
	}
	return nil
}

// AddMatch schedules a match inside a tournament and announces it on the
// tournament topic.
func (s *Service) AddMatch(ctx context.Context, tournamentID uuid.UUID, req AddMatchRequest) (models.Match, error) {
	if err := req.validate(); err != nil {
		return models.Match{}, err
	}

	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return models.Match{}, err
	}

	now := time.Now().UTC()
	m := models.Match{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		HomeTeam:     strings.TrimSpace(req.HomeTeam),
		AwayTeam:     strings.TrimSpace(req.AwayTeam),
		Status:       models.MatchScheduled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateMatch(ctx, m); err != nil {
		return models.Match{}, err
	}

	s.emitter.Emit(ctx, domain.TournamentTopic(tournamentID.String()), live.EventEntityCreated, m)
	s.logger.InfoContext(ctx, "match scheduled",
		"match_id", m.ID,
		"tournament_id", tournamentID,
	)
	return m, nil
}

// UpdateScoreRequest replaces both score lines of a match.
type UpdateScoreRequest struct {
	HomeScore models.TeamScore `json:"home_score"`
	AwayScore models.TeamScore `json:"away_score"`
}

// UpdateScore persists new score lines and broadcasts the snapshot on the
// match topic. The snapshot cache is refreshed best-effort.
func (s *Service) UpdateScore(ctx context.Context, matchID uuid.UUID, req UpdateScoreRequest) (models.Match, error) {
	if err := models.ValidateScore(req.HomeScore); err != nil {
		return models.Match{}, err
	}
	if err := models.ValidateScore(req.AwayScore); err != nil {
		return models.Match{}, err
	}

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return models.Match{}, err
	}
	if m.Status == models.MatchCompleted || m.Status == models.MatchAbandoned {
		return models.Match{}, dErrors.New(dErrors.CodeConflict, "match is no longer live")
	}

	m.HomeScore = req.HomeScore
	m.AwayScore = req.AwayScore
	updated, err := s.store.UpdateMatch(ctx, m)
	if err != nil {
		return models.Match{}, mapMatchErr(err)
	}

	snapshot := updated.Snapshot()
	s.snapshots.Put(ctx, snapshot)
	s.emitter.Emit(ctx, domain.MatchTopic(matchID.String()), live.EventScoreUpdated, snapshot)
	return updated, nil
}

// UpdateStatus moves a match through its lifecycle and broadcasts the change
// on both the match and tournament topics.
func (s *Service) UpdateStatus(ctx context.Context, matchID uuid.UUID, status models.MatchStatus) (models.Match, error) {
	if !status.Valid() {
		return models.Match{}, dErrors.New(dErrors.CodeBadRequest, "unknown match status")
	}

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return models.Match{}, err
	}
	if m.Status == status {
		return m, nil
	}

	m.Status = status
	updated, err := s.store.UpdateMatch(ctx, m)
	if err != nil {
		return models.Match{}, mapMatchErr(err)
	}

	snapshot := updated.Snapshot()
	s.snapshots.Put(ctx, snapshot)
	s.emitter.Emit(ctx, domain.MatchTopic(matchID.String()), live.EventStatusUpdated, snapshot)
	s.emitter.Emit(ctx, domain.TournamentTopic(updated.TournamentID.String()), live.EventStatusUpdated, snapshot)

	s.logger.InfoContext(ctx, "match status changed",
		"match_id", matchID,
		"status", status,
	)
	return updated, nil
}

// RecordPlayerStat records or replaces one player's stat line and broadcasts
// it on the match topic.
func (s *Service) RecordPlayerStat(ctx context.Context, matchID uuid.UUID, stat models.PlayerStat) (models.Match, error) {
	if stat.PlayerID == uuid.Nil {
		return models.Match{}, dErrors.New(dErrors.CodeBadRequest, "player_id is required")
	}
	if stat.Runs < 0 || stat.Balls < 0 || stat.Fours < 0 || stat.Sixes < 0 || stat.Wickets < 0 {
		return models.Match{}, dErrors.New(dErrors.CodeBadRequest, "stat values must be non-negative")
	}

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return models.Match{}, err
	}

	m.ApplyStat(stat)
	updated, err := s.store.UpdateMatch(ctx, m)
	if err != nil {
		return models.Match{}, mapMatchErr(err)
	}

	s.emitter.Emit(ctx, domain.MatchTopic(matchID.String()), live.EventPlayerStatUpdated, stat)
	return updated, nil
}

// GetMatch fetches a match through the retry wrapper.
func (s *Service) GetMatch(ctx context.Context, id uuid.UUID) (models.Match, error) {
	return s.getMatch(ctx, id)
}

// ListMatches returns a tournament's matches ordered by creation time.
func (s *Service) ListMatches(ctx context.Context, tournamentID uuid.UUID) ([]models.Match, error) {
	return storage.WithRetry(ctx, func(ctx context.Context) ([]models.Match, error) {
		return s.store.ListMatches(ctx, tournamentID)
	}, s.retryOpts...)
}

// Snapshot returns the current score snapshot for a match, preferring the
// cache and falling back to the store.
func (s *Service) Snapshot(ctx context.Context, matchID uuid.UUID) (models.ScoreSnapshot, error) {
	if snapshot, err := s.snapshots.Get(ctx, matchID); err == nil {
		return snapshot, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "snapshot cache read failed", "match_id", matchID, "error", err.Error())
	}

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return models.ScoreSnapshot{}, err
	}
	snapshot := m.Snapshot()
	s.snapshots.Put(ctx, snapshot)
	return snapshot, nil
}

func (s *Service) getMatch(ctx context.Context, id uuid.UUID) (models.Match, error) {
	m, err := storage.WithRetry(ctx, func(ctx context.Context) (models.Match, error) {
		return s.store.GetMatch(ctx, id)
	}, s.retryOpts...)
	if err != nil {
		return models.Match{}, mapMatchErr(err)
	}
	return m, nil
}

func mapMatchErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "match not found")
	}
	return err
}
