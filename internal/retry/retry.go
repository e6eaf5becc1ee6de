// Package retry provides the backoff policy shared by both platform fetch
// adapters: capped attempts, a linear delay between attempts, and a predicate
// deciding which HTTP statuses are worth retrying.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy drives one endpoint candidate's retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number between tries.
	BaseDelay time.Duration
	// RetryStatus reports whether an HTTP status is transient.
	RetryStatus func(status int) bool
}

// Default matches the upstream behavior: three attempts, linear backoff,
// retry only on server-side failures.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		RetryStatus: func(status int) bool { return status >= 500 },
	}
}

// Delay returns the sleep before attempt+1. Linear: base, 2*base, ...
func (p Policy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Do runs fn up to MaxAttempts times, sleeping Delay(n) between tries.
// Transport errors (non-nil err) and statuses matching RetryStatus are
// retried; anything else is returned to the caller as-is. A nil RetryStatus
// retries server-side failures (>= 500). When all attempts are exhausted the
// last status is returned with a non-nil error.
func (p Policy) Do(ctx context.Context, fn func(attempt int) (status int, err error)) (int, error) {
	retryStatus := p.RetryStatus
	if retryStatus == nil {
		retryStatus = func(status int) bool { return status >= 500 }
	}
	var (
		status  int
		lastErr error
	)
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(p.Delay(attempt - 1)):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
		status, lastErr = fn(attempt)
		if lastErr != nil {
			continue
		}
		if !retryStatus(status) {
			return status, nil
		}
	}
	if lastErr != nil {
		return status, fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
	}
	return status, fmt.Errorf("after %d attempts: HTTP %d", p.MaxAttempts, status)
}
