package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// RetryPolicy bounds how rate-limited calls are retried. The delay before
// retry n (0-based) is BaseDelay * 2^n; no delay follows the final attempt
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration

	// Sleep waits between attempts. Nil means a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy matches the provider's suggested backoff for quota errors
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 8 * time.Second}
}

// Delay returns the wait after the given failed attempt (0-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<attempt)
}

// Retry calls fn until it succeeds, fails with a non rate-limit error, or the
// policy's attempts are used up. Errors from fn are passed through Classify
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	for attempt := range attempts {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}

		err = Classify(err)
		if !errors.Is(err, ErrRateLimited) {
			return zero, err
		}

		if attempt == attempts-1 {
			log.Printf("[LLM]: Max retries reached for rate limited call: %v", err)
			return zero, fmt.Errorf("giving up after %d attempts: %w", attempts, err)
		}

		wait := p.Delay(attempt)
		log.Printf("[LLM]: Rate limited, retrying in %s (attempt %d/%d)", wait, attempt+1, attempts)
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
