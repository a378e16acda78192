package commerce

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often a transient backend failure is retried.
// Structural errors (the backend rejected the request) must be wrapped with
// Permanent by the operation so they surface immediately.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy matches the backend protocol: up to 5 attempts with
// exponential backoff starting at 1.5s and doubling each attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 1500 * time.Millisecond,
		Multiplier:      2,
	}
}

// Permanent marks an error as not retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the attempt budget
// is exhausted, or the context is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	attempts := uint64(0)
	if p.MaxAttempts > 1 {
		attempts = uint64(p.MaxAttempts - 1)
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, attempts), ctx))
}
