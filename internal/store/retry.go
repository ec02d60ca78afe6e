package store

import (
	"context"
	"time"

	"github.com/lexilabs/lexid/internal/config"
)

// RetryPolicy bounds retries for a single store operation. The zero value is
// not usable; construct with PolicyFromConfig or DefaultPolicy.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int

	// Backoff is the fixed delay between attempts.
	Backoff time.Duration

	// sleep waits for the backoff delay. Replaced in tests with a fake so
	// retry behavior is deterministic without a real clock.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the production policy: 3 attempts, 600ms apart.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     600 * time.Millisecond,
		sleep:       sleepContext,
	}
}

// PolicyFromConfig builds a policy from store configuration.
func PolicyFromConfig(cfg config.StoreConfig) RetryPolicy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.Backoff > 0 {
		p.Backoff = cfg.Backoff.Duration()
	}
	return p
}

// WithSleep returns a copy of the policy using the given sleep function.
// Intended for tests.
func (p RetryPolicy) WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetryPolicy {
	p.sleep = sleep
	return p
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
