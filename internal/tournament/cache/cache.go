// Package cache keeps the latest score snapshot per match in Redis so that
// clients joining a topic mid-match can fetch the current state without
// hitting Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pitchside/internal/tournament/models"
)

// ErrMiss is returned when no snapshot is cached for the match.
var ErrMiss = errors.New("snapshot not cached")

const defaultTTL = 24 * time.Hour

// SnapshotCache stores score snapshots keyed by match id. A nil client
// disables the cache; every method becomes a no-op returning ErrMiss on
// reads.
type SnapshotCache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, logger *slog.Logger) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		logger: logger.With("component", "tournament.cache"),
		ttl:    defaultTTL,
	}
}

func snapshotKey(matchID uuid.UUID) string {
	return "snapshot:match:" + matchID.String()
}

// Put stores the snapshot. Failures are logged, not returned; the cache is
// advisory and must never fail a score update.
func (c *SnapshotCache) Put(ctx context.Context, snapshot models.ScoreSnapshot) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.WarnContext(ctx, "snapshot marshal failed", "error", err.Error())
		return
	}
	if err := c.client.Set(ctx, snapshotKey(snapshot.MatchID), payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "snapshot cache write failed",
			"match_id", snapshot.MatchID,
			"error", err.Error(),
		)
	}
}

// Get returns the cached snapshot, or ErrMiss when absent or disabled.
func (c *SnapshotCache) Get(ctx context.Context, matchID uuid.UUID) (models.ScoreSnapshot, error) {
	if c == nil || c.client == nil {
		return models.ScoreSnapshot{}, ErrMiss
	}
	payload, err := c.client.Get(ctx, snapshotKey(matchID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ScoreSnapshot{}, ErrMiss
		}
		return models.ScoreSnapshot{}, fmt.Errorf("snapshot cache read: %w", err)
	}
	var snapshot models.ScoreSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return models.ScoreSnapshot{}, fmt.Errorf("snapshot cache decode: %w", err)
	}
	return snapshot, nil
}
