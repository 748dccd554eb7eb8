package api

import (
	"errors"
	"math/rand"
	"time"
)

// maxJitter is the upper bound of the uniform jitter added to every
// backoff delay, spreading retries of concurrent clients apart.
const maxJitter = 500 * time.Millisecond

// RetryPolicy decides retry eligibility and backoff delay. It is a pure
// value; all state lives in its configuration.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Eligible reports whether a failed attempt should be retried. Only
// transient failure kinds qualify: rate limiting, server errors, timeouts
// and network errors. Client-side mistakes and auth failures fail fast.
func (p RetryPolicy) Eligible(err error, attempt int) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case ErrRateLimited, ErrServerError, ErrTimeout, ErrNetwork:
		return true
	default:
		return false
	}
}

// Delay computes the backoff before the given retry attempt:
// BaseDelay * 2^attempt plus uniform jitter in [0, 500ms), clamped to
// MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt > 62 {
		attempt = 62
	}
	backoff := p.BaseDelay << uint(attempt)
	if backoff <= 0 || backoff > p.MaxDelay {
		return p.MaxDelay
	}
	backoff += time.Duration(rand.Int63n(int64(maxJitter)))
	if backoff > p.MaxDelay {
		return p.MaxDelay
	}
	return backoff
}
