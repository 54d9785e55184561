package cache

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchside/internal/tournament/models"
)

func testCache(t *testing.T) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSnapshotCache(client, slog.New(slog.DiscardHandler)), srv
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	snapshot := models.ScoreSnapshot{
		MatchID:   uuid.New(),
		Status:    models.MatchLive,
		HomeTeam:  "Northern Knights",
		AwayTeam:  "Harbour Hawks",
		HomeScore: models.TeamScore{Runs: 120, Wickets: 3, Overs: 14.2},
	}

	c.Put(ctx, snapshot)

	got, err := c.Get(ctx, snapshot.MatchID)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)
}

func TestSnapshotCacheMiss(t *testing.T) {
	c, _ := testCache(t)

	_, err := c.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSnapshotCachePutOverwrites(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()
	matchID := uuid.New()

	c.Put(ctx, models.ScoreSnapshot{MatchID: matchID, HomeScore: models.TeamScore{Runs: 10}})
	c.Put(ctx, models.ScoreSnapshot{MatchID: matchID, HomeScore: models.TeamScore{Runs: 16}})

	got, err := c.Get(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, 16, got.HomeScore.Runs)
}

func TestSnapshotCacheEntriesExpire(t *testing.T) {
	c, srv := testCache(t)
	ctx := context.Background()
	matchID := uuid.New()

	c.Put(ctx, models.ScoreSnapshot{MatchID: matchID})
	require.True(t, srv.Exists(snapshotKey(matchID)))

	srv.FastForward(defaultTTL + 1)

	_, err := c.Get(ctx, matchID)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSnapshotCacheDisabled(t *testing.T) {
	c := NewSnapshotCache(nil, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	// Writes are silent no-ops; reads always miss.
	c.Put(ctx, models.ScoreSnapshot{MatchID: uuid.New()})
	_, err := c.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSnapshotCacheServerDown(t *testing.T) {
	c, srv := testCache(t)
	ctx := context.Background()
	matchID := uuid.New()

	srv.Close()

	// Put never fails the caller.
	c.Put(ctx, models.ScoreSnapshot{MatchID: matchID})

	_, err := c.Get(ctx, matchID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
