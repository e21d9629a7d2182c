package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/randalmurphal/observable/pkg/observable/config"
)

// RetryConfig configures retries of store operations.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// InitialBackoff is the starting backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64

	// Retryable optionally overrides IsTransient.
	Retryable func(error) bool
}

// DefaultRetry suits a local database: a few quick attempts.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 20 * time.Millisecond,
	MaxBackoff:     500 * time.Millisecond,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{
	MaxAttempts: 1,
}

// RetryConfigFrom reads a retry section, falling back to DefaultRetry for
// missing keys:
//
//	max_attempts: 5
//	initial_backoff: 50ms
//	max_backoff: 2s
//	backoff_factor: 1.5
//	jitter: 0.2
func RetryConfigFrom(cfg config.Config) RetryConfig {
	d := DefaultRetry
	return RetryConfig{
		MaxAttempts:    cfg.Int("max_attempts", d.MaxAttempts),
		InitialBackoff: cfg.Duration("initial_backoff", d.InitialBackoff),
		MaxBackoff:     cfg.Duration("max_backoff", d.MaxBackoff),
		BackoffFactor:  cfg.Float("backoff_factor", d.BackoffFactor),
		Jitter:         cfg.Float("jitter", d.Jitter),
	}
}

// TransientError marks a store failure that may succeed on retry.
type TransientError struct {
	Err error
}

// Error implements error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is worth retrying: a TransientError or a
// busy SQLite database.
func IsTransient(err error) bool {
	var terr *TransientError
	if errors.As(err, &terr) {
		return true
	}
	return isBusy(err)
}

// RetryError reports the last failure of a retried operation.
type RetryError struct {
	Op       string
	Attempts int
	Err      error
}

// Error implements error interface.
func (e *RetryError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *RetryError) Unwrap() error {
	return e.Err
}

// withRetry runs fn until it succeeds, fails with a non-retryable error,
// runs out of attempts, or ctx is done.
func withRetry(ctx context.Context, cfg RetryConfig, op string, fn func() error) error {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	attempts := max(cfg.MaxAttempts, 1)
	backoff := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &RetryError{Op: op, Attempts: attempt - 1, Err: err}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == attempts {
			return &RetryError{Op: op, Attempts: attempt, Err: lastErr}
		}

		select {
		case <-ctx.Done():
			return &RetryError{Op: op, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(calculateBackoff(backoff, cfg.Jitter)):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return &RetryError{Op: op, Attempts: attempts, Err: lastErr}
}

// calculateBackoff returns base +/- base*jitter*random.
func calculateBackoff(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	delta := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + delta)
}
