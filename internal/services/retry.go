package services

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultRetryAttempts  = 4
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 10 * time.Second
)

// RetryPolicy bounds the exponential backoff applied to transient failures.
// Attempts counts the first call, so Attempts=1 disables retries.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy returns the policy used when configuration leaves retry unset.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  defaultRetryAttempts,
		BaseDelay: defaultRetryBaseDelay,
		MaxDelay:  defaultRetryMaxDelay,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(maxDelay, b)
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(uint64(attempts-1), b) // #nosec G115 -- attempts clamped above
}

// Retry runs op until it succeeds, returns a non-transient error, or the policy
// is exhausted. Only errors tagged with ErrTransient are retried; the last
// error is returned unchanged so callers can still classify it.
func Retry(ctx context.Context, policy RetryPolicy, op func(context.Context) error) error {
	return retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		err := op(ctx)
		if err != nil && IsTransient(err) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
}
