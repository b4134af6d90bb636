// Package retry provides a small attempt executor for transient-fault-prone
// calls: a policy of max attempts with exponential backoff, and a marker
// for errors that must not be retried.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds the attempts made for a single operation.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Delay returns the backoff before the given retry (attempt is 1-based;
// the delay applies after attempt N fails). Doubles each retry, capped
// at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.InitialDelay * time.Duration(1<<uint(attempt-1))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// PermanentError wraps an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent marks an error as non-retryable. Do stops immediately when
// the operation returns such an error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a non-retryable marker.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// Do runs op up to policy.MaxAttempts times, sleeping between attempts.
// It stops early on success, on a permanent error, or on context
// cancellation. The returned error is the last attempt's error with the
// permanent marker removed.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context, attempt int) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		var perm *PermanentError
		if errors.As(lastErr, &perm) {
			return perm.Err
		}

		if attempt < attempts {
			select {
			case <-time.After(policy.Delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}
