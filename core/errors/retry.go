package errors

import (
	"context"
	"time"
)

// RetryPolicy defines the retry behavior for contended operations.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts (0 means a single try).
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the starting backoff duration.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay caps the backoff duration.
	MaxDelay time.Duration `yaml:"max_delay"`

	// Multiplier is the backoff multiplier (default 2.0).
	Multiplier float64 `yaml:"multiplier"`

	// JitterPercent is the jitter percentage (default 0.1 for 10%).
	JitterPercent float64 `yaml:"jitter_percent"`
}

// DefaultNumberingPolicy returns the retry policy for version-number
// assignment races. Contention windows are short, so delays start small.
func DefaultNumberingPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:   5,
		InitialDelay:  5 * time.Millisecond,
		MaxDelay:      100 * time.Millisecond,
		Multiplier:    2.0,
		JitterPercent: 0.1,
	}
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is exhausted. retryable classifies errors; a nil
// classifier retries everything. The last error is returned on
// exhaustion.
func Retry(ctx context.Context, policy *RetryPolicy, retryable func(error) bool, fn func() error) error {
	attempts := 1
	if policy != nil && policy.MaxAttempts > 0 {
		attempts = policy.MaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		delay := AddJitter(CalculateDelay(attempt, policy), jitterPercent(policy))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func jitterPercent(policy *RetryPolicy) float64 {
	if policy == nil {
		return 0
	}
	return policy.JitterPercent
}
