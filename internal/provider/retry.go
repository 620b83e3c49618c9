package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy retries transient failures with exponential backoff: the delay
// doubles each attempt, capped at MaxDelay. It is applied uniformly by the
// client so no call site carries its own retry loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// permanentError marks failures that retrying cannot fix (4xx responses,
// malformed payloads). Do returns the wrapped error immediately.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the retry policy stops retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs attempt until it succeeds, returns a permanent error, or the
// attempt budget is exhausted.
func (p RetryPolicy) Do(ctx context.Context, attempt func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = attempt()
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}
