// Package storage provides shared storage errors and the transient-error
// retry wrapper used by every persistence read in the system.
package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pitchside/internal/platform/config"
)

const tracerName = "pitchside/internal/storage"

// Options tunes one WithRetry invocation. Zero values fall back to defaults.
type Options struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64

	Logger  *slog.Logger
	Counter prometheus.Counter

	// Sleep is injectable for tests; the default honors context cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Option mutates Options.
type Option func(*Options)

// WithMaxRetries caps the number of retries after the first attempt.
func WithMaxRetries(n int) Option { return func(o *Options) { o.MaxRetries = n } }

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option { return func(o *Options) { o.InitialDelay = d } }

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) Option { return func(o *Options) { o.MaxDelay = d } }

// WithBackoffMultiplier sets the exponential growth factor.
func WithBackoffMultiplier(m float64) Option { return func(o *Options) { o.BackoffMultiplier = m } }

// WithLogger attaches a logger for per-retry observability.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

// WithRetryCounter counts every retry attempt in Prometheus.
func WithRetryCounter(c prometheus.Counter) Option { return func(o *Options) { o.Counter = c } }

// WithSleep replaces the backoff sleep, letting tests observe delays without
// waiting them out.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Options) { o.Sleep = sleep }
}

// FromConfig converts the environment retry policy into options.
func FromConfig(cfg config.RetryConfig) []Option {
	return []Option{
		WithMaxRetries(cfg.MaxRetries),
		WithInitialDelay(cfg.InitialDelay),
		WithMaxDelay(cfg.MaxDelay),
		WithBackoffMultiplier(cfg.BackoffMultiplier),
	}
}

func defaultOptions() Options {
	return Options{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2,
		Logger:            slog.New(slog.DiscardHandler),
		Sleep:             sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithRetry runs op, retrying transient storage failures with bounded
// exponential backoff. Fatal errors (constraint violations, not-found,
// validation) propagate immediately. The operation is invoked at most
// MaxRetries+1 times; it must be safe to invoke more than once, which is why
// only read paths use this wrapper.
func WithRetry[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "storage.WithRetry")
	defer span.End()

	var zero T
	delay := o.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			span.SetAttributes(attribute.Int("storage.attempts", attempt+1))
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) {
			span.SetAttributes(attribute.Bool("storage.fatal", true))
			return zero, err
		}
		if attempt == o.MaxRetries {
			break
		}

		o.Logger.WarnContext(ctx, "transient storage error, retrying",
			"attempt", attempt+1,
			"max_retries", o.MaxRetries,
			"delay", delay,
			"error", err,
		)
		if o.Counter != nil {
			o.Counter.Inc()
		}
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("attempt", attempt+1),
			attribute.String("delay", delay.String()),
		))

		if err := o.Sleep(ctx, delay); err != nil {
			return zero, err
		}
		delay = min(time.Duration(float64(delay)*o.BackoffMultiplier), o.MaxDelay)
	}

	span.SetAttributes(attribute.Bool("storage.exhausted", true))
	return zero, lastErr
}

// transientPatterns matches driver error strings that have no typed error to
// inspect. Kept deliberately narrow: anything unrecognized is fatal.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"broken pipe",
	"timeout",
	"timed out",
	"no such host",
	"server closed",
}

// IsTransient classifies a storage error as retry-eligible. Transient means
// the failure is plausibly temporary: connection establishment, timeouts, or
// the server closing the connection. Everything else, including not-found and
// constraint violations, is fatal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation belongs to the caller; deadline overruns are
	// timeouts and therefore retryable if the parent context still lives.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
