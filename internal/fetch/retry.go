// ABOUTME: Explicit retry policy for rate-limited fetches.
// ABOUTME: Retries only ErrRateLimited, sleeping a fixed backoff between attempts.
package fetch

import (
	"context"
	"errors"
	"time"
)

// DefaultBackoff is the wait after a 429 before the single retry.
const DefaultBackoff = 60 * time.Second

// RetryPolicy controls how a rate-limited call is retried.
type RetryPolicy struct {
	// MaxAttempts counts the first call. 2 means one retry.
	MaxAttempts int
	// Backoff[i] is the wait before attempt i+2. The last entry repeats.
	Backoff []time.Duration
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy waits a fixed minute and retries once.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Backoff: []time.Duration{DefaultBackoff}}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return DefaultBackoff
	}
	if attempt >= len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[attempt]
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do calls fn until it succeeds, fails with something other than
// ErrRateLimited, or runs out of attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if serr := p.sleep(ctx, p.backoff(i-1)); serr != nil {
				return serr
			}
		}
		err = fn()
		if err == nil || !errors.Is(err, ErrRateLimited) {
			return err
		}
	}
	return err
}
