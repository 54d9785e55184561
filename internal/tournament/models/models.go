// Package models defines the tournament and match records.
package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "pitchside/pkg/domain-errors"
)

// TournamentStatus is the lifecycle of a tournament.
type TournamentStatus string

const (
	TournamentUpcoming TournamentStatus = "UPCOMING"
	TournamentActive   TournamentStatus = "ACTIVE"
	TournamentFinished TournamentStatus = "FINISHED"
)

// MatchStatus is the lifecycle of a match.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchLive      MatchStatus = "LIVE"
	MatchCompleted MatchStatus = "COMPLETED"
	MatchAbandoned MatchStatus = "ABANDONED"
)

// Valid reports whether s is a known match status.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchScheduled, MatchLive, MatchCompleted, MatchAbandoned:
		return true
	}
	return false
}

// Tournament groups matches under one broadcast scope.
type Tournament struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Status    TournamentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// TeamScore is one side's cricket score line.
type TeamScore struct {
	Runs    int     `json:"runs"`
	Wickets int     `json:"wickets"`
	Overs   float64 `json:"overs"`
}

// PlayerStat is one player's contribution within a match.
type PlayerStat struct {
	PlayerID uuid.UUID `json:"player_id"`
	Runs     int       `json:"runs"`
	Balls    int       `json:"balls"`
	Fours    int       `json:"fours"`
	Sixes    int       `json:"sixes"`
	Wickets  int       `json:"wickets"`
}

// Match is a single fixture between two teams.
type Match struct {
	ID           uuid.UUID    `json:"id"`
	TournamentID uuid.UUID    `json:"tournament_id"`
	HomeTeam     string       `json:"home_team"`
	AwayTeam     string       `json:"away_team"`
	Status       MatchStatus  `json:"status"`
	HomeScore    TeamScore    `json:"home_score"`
	AwayScore    TeamScore    `json:"away_score"`
	PlayerStats  []PlayerStat `json:"player_stats,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ApplyStat records or replaces a player's stat line.
func (m *Match) ApplyStat(stat PlayerStat) {
	for i, existing := range m.PlayerStats {
		if existing.PlayerID == stat.PlayerID {
			m.PlayerStats[i] = stat
			return
		}
	}
	m.PlayerStats = append(m.PlayerStats, stat)
}

// ScoreSnapshot is the broadcast payload for score changes and the record
// cached for late subscribers.
type ScoreSnapshot struct {
	MatchID   uuid.UUID   `json:"match_id"`
	Status    MatchStatus `json:"status"`
	HomeTeam  string      `json:"home_team"`
	AwayTeam  string      `json:"away_team"`
	HomeScore TeamScore   `json:"home_score"`
	AwayScore TeamScore   `json:"away_score"`
}

// Snapshot projects the broadcastable score state of a match.
func (m Match) Snapshot() ScoreSnapshot {
	return ScoreSnapshot{
		MatchID:   m.ID,
		Status:    m.Status,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		HomeScore: m.HomeScore,
		AwayScore: m.AwayScore,
	}
}

// ValidateScore rejects impossible score lines before they are persisted.
func ValidateScore(score TeamScore) error {
	if score.Runs < 0 || score.Wickets < 0 || score.Overs < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "score values must be non-negative")
	}
	if score.Wickets > 10 {
		return dErrors.New(dErrors.CodeBadRequest, "a side cannot lose more than 10 wickets")
	}
	return nil
}
