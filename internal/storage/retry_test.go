package storage

import (
	"context"
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("connection refused")

// noSleep skips the backoff while recording the requested delays.
func noSleep(delays *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	calls := 0

	got, err := WithRetry(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	}, noSleep(&delays))

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	var delays []time.Duration
	calls := 0

	_, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	}, WithMaxRetries(3), noSleep(&delays))

	require.ErrorIs(t, err, errTransient)
	// maxRetries=3 means 1 initial attempt + 3 retries.
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
}

func TestWithRetryDelayIsCapped(t *testing.T) {
	var delays []time.Duration

	_, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		return 0, errTransient
	}, WithMaxRetries(5), WithInitialDelay(4*time.Second), WithMaxDelay(10*time.Second), noSleep(&delays))

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second, 10 * time.Second,
	}, delays)
}

func TestWithRetryFatalErrorReturnsImmediately(t *testing.T) {
	calls := 0

	_, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, ErrNotFound
	})

	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestWithRetryZeroRetriesRunsOnce(t *testing.T) {
	calls := 0

	_, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	}, WithMaxRetries(0))

	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonorsCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := WithRetry(ctx, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errTransient
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff stops further attempts")
}

func TestIsTransient(t *testing.T) {
	transient := []error{
		errors.New("dial tcp: connection refused"),
		errors.New("read: connection reset by peer"),
		errors.New("write: broken pipe"),
		errors.New("i/o timeout"),
		io.EOF,
		io.ErrUnexpectedEOF,
		syscall.ECONNREFUSED,
		context.DeadlineExceeded,
	}
	for _, err := range transient {
		assert.True(t, IsTransient(err), "expected transient: %v", err)
	}

	fatal := []error{
		nil,
		context.Canceled,
		ErrNotFound,
		ErrConflict,
		errors.New("duplicate key value violates unique constraint"),
		errors.New("syntax error at or near"),
	}
	for _, err := range fatal {
		assert.False(t, IsTransient(err), "expected fatal: %v", err)
	}
}
