// Package resilient wraps calls into the lifecycle service and creation saga
// with retry-with-backoff, optimistic apply and rollback, per-slot
// supersession, cancellation, and batch execution with partial-failure
// accounting. Nothing in it is domain-specific.
package resilient

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
)

// Config configures retry behavior.
type Config struct {
	// Name labels metrics and log lines.
	Name string

	// MaxRetries is the number of retries after the first call. Zero means
	// call once.
	MaxRetries int

	// BaseDelay is the wait after the first failed call. Each later wait
	// doubles it.
	BaseDelay time.Duration

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultConfig returns the defaults used when configuration leaves a field unset.
func DefaultConfig() Config {
	return Config{
		Name:       "default",
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("resilient: invalid config")

func (c Config) Validate() error {
	if c.MaxRetries < 0 || c.BaseDelay < 0 || c.MaxDelay < 0 {
		return ErrInvalidConfig
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.BaseDelay {
		return ErrInvalidConfig
	}
	return nil
}

// Backoff returns the wait after the failed call with 0-based index attempt:
// BaseDelay × 2^attempt, capped at MaxDelay.
func (c Config) Backoff(attempt int) time.Duration {
	d := c.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if c.MaxDelay > 0 && d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

func (c Config) label() string {
	if c.Name == "" {
		return "default"
	}
	return c.Name
}

// Func is one call of a retried operation. attempt is 0 for the first call.
type Func[T any] func(ctx context.Context, attempt int) (T, error)

// Retry calls fn until it succeeds, returns a non-retryable error, or
// MaxRetries retries are spent. Only network-category errors are retried.
func Retry[T any](ctx context.Context, cfg Config, fn Func[T]) (T, error) {
	v, _, err := retry(ctx, cfg, fn)
	return v, err
}

// retry is Retry that also reports how many retries were made.
func retry[T any](ctx context.Context, cfg Config, fn Func[T]) (T, int, error) {
	var zero T
	label := cfg.label()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, attempt, apperr.Classify(err, "")
		}

		attemptsTotal.WithLabelValues(label).Inc()
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, attempt, nil
		}
		if !apperr.IsRetryable(err) || attempt >= cfg.MaxRetries {
			return zero, attempt, err
		}

		select {
		case <-ctx.Done():
			return zero, attempt, apperr.Classify(ctx.Err(), "")
		case <-time.After(cfg.Backoff(attempt)):
		}
	}
}
