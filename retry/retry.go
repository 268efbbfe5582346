// Package retry wraps fallible remote calls with exponential backoff,
// retrying transient failures and surfacing everything else unchanged.
package retry

import (
	"context"
	"errors"
	"log"
	"net"
	"time"
)

// TransientError marks a failure worth retrying: rate limits, upstream
// overload, timeouts. Anything not transient is fatal and surfaced at once.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return "transient failure in " + e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Retryable() bool { return true }

type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether a failure may succeed on another attempt.
// Errors can opt in by implementing Retryable() bool; network timeouts and
// deadline expiry are always retryable; context cancellation never is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Invoke calls fn up to maxAttempts times, sleeping initialDelay*2^(attempt-1)
// between attempts. Only retryable failures re-enter the loop; the last
// attempt's error is returned unchanged. The wait is interruptible: a
// cancelled context ends the loop before the next attempt.
func Invoke[T any](ctx context.Context, op string, fn func(context.Context) (T, error), maxAttempts int, initialDelay time.Duration) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == maxAttempts {
			break
		}

		delay := initialDelay << (attempt - 1)
		log.Printf("retry: %s attempt %d/%d failed (%v), retrying in %v", op, attempt, maxAttempts, err, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, lastErr
		}
	}
	return zero, lastErr
}
