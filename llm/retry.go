package llm

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy configures retry behavior for provider calls: a bounded
// attempt count with a fixed delay between attempts.
type RetryPolicy struct {
	Attempts int           // total attempts, including the first
	Delay    time.Duration // fixed delay between attempts
	OnRetry  func(err error, attempt int)
}

// DefaultRetryPolicy returns the default policy: six attempts, one second
// apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 6,
		Delay:    time.Second,
	}
}

// ShouldRetry reports whether an error is safe to retry. A TokenLimitError
// is never retried; validation and capability failures are deterministic and
// never retried either. A ProviderError carries its own retryability.
// Unknown transport errors default to retryable.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var (
		tokenErr    *TokenLimitError
		argErr      *ArgumentError
		capErr      *CapabilityError
		providerErr *ProviderError
	)
	switch {
	case errors.As(err, &tokenErr):
		return false
	case errors.As(err, &argErr):
		return false
	case errors.As(err, &capErr):
		return false
	case errors.As(err, &providerErr):
		return providerErr.Retryable
	default:
		return true
	}
}

// Retry executes fn under the policy. Non-retryable errors propagate
// immediately; retryable ones are retried until the attempt budget is spent,
// after which the last error propagates.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var result T
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if !ShouldRetry(err) || attempt == attempts {
			return zero, err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(policy.Delay):
		}
	}
	return zero, err
}
