package agencykit

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"
)

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// readAttempts bounds retries of read-only loads.
const readAttempts = 3

// retryTransient runs fn until it succeeds, fails with a non-transient
// error, or attempts run out. Backoff doubles from base with 10% jitter and
// stops early when ctx is done. Only idempotent work may be retried.
func retryTransient(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isTransientError(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		backoff := base << uint(attempt)
		jitter := time.Duration(float64(backoff) * 0.1 * (0.5 + rand.Float64()))
		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(backoff + jitter):
		}
	}
	return lastErr
}

var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"deadlock",
	"lock wait timeout",
	"could not serialize access",
	"temporary failure",
	"try again",
	"resource temporarily unavailable",
}

// isTransientError reports whether a database error is worth retrying.
// Access decisions and cancellation never are.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var accessErr *Error
	if errors.As(err, &accessErr) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
