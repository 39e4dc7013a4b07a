package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks backend connectivity failures (Redis timeouts,
// refused connections). Lookups failing this way degrade to cache misses
// at the pipeline level; writes are retried.
var ErrUnavailable = errors.New("cache backend unavailable")

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

// Retryable wraps an error as a RetryableError.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Error returns the error message of the wrapped error.
func (e *RetryableError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is wrapped with RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Retries cap out quickly on purpose: a result that cannot be stored is
// simply recomputed on the next run, so stalling the pipeline on a dead
// backend buys nothing.
const (
	retryAttempts  = 3
	retryBaseDelay = 250 * time.Millisecond
)

// RetryWithBackoff runs fn, retrying with exponential backoff on errors
// wrapped with Retryable. Anything else (a corrupt entry, a rejected key)
// fails immediately.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryBaseDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == retryAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
