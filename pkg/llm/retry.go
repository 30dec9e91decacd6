package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds retries of a provider call with exponential backoff.
// The delay starts at InitialInterval, doubles after each failure and is
// capped at MaxInterval. Timer is injectable so tests do not depend on
// wall-clock delay; nil means real time.
type RetryPolicy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timer           backoff.Timer
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     10 * time.Second,
	}
}

// Do runs fn, retrying on any error until the attempt budget is
// exhausted or ctx is cancelled.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.Multiplier = 2.0
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxAttempts-1), ctx)
	if err := backoff.RetryNotifyWithTimer(fn, policy, nil, p.Timer); err != nil {
		return fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
	}
	return nil
}
