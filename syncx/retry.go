package syncx

import (
	"context"

	"github.com/cenkalti/backoff"
)

// NewBackoff builds a cenkalti/backoff exponential policy from cfg: base
// delay as the initial interval, max delay as the interval ceiling, and
// the configured jitter factor as the library's randomization factor.
// The library draws each delay uniformly from interval*(1-jitter) to
// interval*(1+jitter), where interval = base * 2^attempt capped at
// max_delay; jitter can therefore shorten a delay as well as lengthen it,
// and a randomised delay can exceed max_delay by up to the jitter factor.
func NewBackoff(cfg RetryConfig) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BaseDelay
	b.MaxInterval = cfg.MaxDelay
	b.RandomizationFactor = cfg.JitterFactor
	b.Multiplier = 2
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not wall-clock
	return backoff.WithMaxRetries(b, uint64(cfg.MaxRetries))
}

// RunWithRetry runs op under cfg's backoff policy, stopping early if ctx
// is cancelled or op's error is non-retriable (wrapped as a
// *backoff.PermanentError by the caller).
func RunWithRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	policy := backoff.WithContext(NewBackoff(cfg), ctx)
	return backoff.Retry(op, policy)
}
