package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig bounds how often a single storage call is attempted.
// Only transient failures, such as a locked SQLite database, are retried.
type RetryConfig struct {
	// MaxAttempts counts the first call. Values below 1 mean 1.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt. It doubles
	// after every further failure.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts. Zero means no cap.
	MaxBackoff time.Duration
}

// NoRetry calls the store exactly once.
var NoRetry = RetryConfig{MaxAttempts: 1}

// storageRetry suits local storage: a few quick attempts while a lock clears.
var storageRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 50 * time.Millisecond,
	MaxBackoff:     time.Second,
}

// backoffJitter spreads concurrent writers waiting on the same lock.
const backoffJitter = 0.1

// RetryResult is the outcome of a retried storage call.
type RetryResult[T any] struct {
	Value    T
	Err      error
	Attempts int
}

// Do retries a storage call that returns only an error.
func Do(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) RetryResult[struct{}] {
	return WithRetryContext(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// WithRetryContext calls fn until it succeeds, fails with a non-transient
// error, runs out of attempts, or ctx is done. Failures are returned as a
// *CategorizedError wrapping the last error.
func WithRetryContext[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func(context.Context) (T, error),
) RetryResult[T] {
	attempts := max(cfg.MaxAttempts, 1)
	wait := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return RetryResult[T]{
				Err:      &CategorizedError{Err: err, Category: CategoryPermanent, Retries: attempt - 1, Context: "context cancelled"},
				Attempts: attempt - 1,
			}
		}

		value, err := fn(ctx)
		if err == nil {
			return RetryResult[T]{Value: value, Attempts: attempt}
		}
		lastErr = err

		if !IsRetryable(err) {
			return RetryResult[T]{
				Err:      &CategorizedError{Err: err, Category: Categorize(err), Retries: attempt},
				Attempts: attempt,
			}
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return RetryResult[T]{
				Err:      &CategorizedError{Err: ctx.Err(), Category: CategoryPermanent, Retries: attempt, Context: "context cancelled during backoff"},
				Attempts: attempt,
			}
		case <-time.After(jitter(wait)):
		}

		wait *= 2
		if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
			wait = cfg.MaxBackoff
		}
	}

	return RetryResult[T]{
		Err: &CategorizedError{
			Err:      lastErr,
			Category: CategoryTransient,
			Retries:  attempts,
			Context:  "max retries exceeded",
		},
		Attempts: attempts,
	}
}

// jitter returns d moved by up to backoffJitter of itself in either direction.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(float64(d) * (1 + backoffJitter*(rand.Float64()*2-1)))
}

// RetryOption configures a RetryConfig.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.MaxAttempts = n
	}
}

// WithInitialBackoff sets the wait before the second attempt.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.InitialBackoff = d
	}
}

// NewRetryConfig starts from three attempts 50ms apart, capped at one
// second, and applies opts.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := storageRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
