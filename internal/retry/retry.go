// Package retry runs a unit of work again when it fails with an error the
// caller classified as retryable, up to a fixed budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tinoosan/walletledger/internal/errs"
)

// ErrExhausted wraps the last retryable error once the budget is spent.
var ErrExhausted = errors.New("retry budget exhausted")

// Policy describes how many extra attempts are allowed and how long to wait between them.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Backoff returns the delay before retry n (1-based). Nil means no delay.
	Backoff func(n int) time.Duration
	// Retryable classifies errors. Nil means errs.Retryable.
	Retryable func(error) bool
	// OnRetry is called before each retry with the error that triggered it.
	OnRetry func(n int, err error)
}

// Default allows two retries with a short linear backoff.
func Default() Policy {
	return Policy{MaxRetries: 2, Backoff: Linear(5 * time.Millisecond)}
}

// Linear returns a backoff of n*step.
func Linear(step time.Duration) func(int) time.Duration {
	return func(n int) time.Duration { return time.Duration(n) * step }
}

// Do runs fn until it succeeds, fails with a non-retryable error, the context
// ends, or the budget is exhausted. The attempt number passed to fn starts at 0.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	classify := p.Retryable
	if classify == nil {
		classify = errs.Retryable
	}
	var last error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if p.OnRetry != nil {
				p.OnRetry(attempt, last)
			}
			if p.Backoff != nil {
				if err := sleep(ctx, p.Backoff(attempt)); err != nil {
					return err
				}
			}
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !classify(err) {
			return err
		}
		last = err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxRetries+1, last)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
