//nolint:revive // util is a common package name for shared utilities
package util

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"craftinstall/internal/domain"
)

// RetryConfig holds configuration for retry operations
type RetryConfig struct {
	MaxRetries int
	RetryDelay float64
}

// WithRetry wraps an operation with a backoff-based retry loop using github.com/cenkalti/backoff/v4
func WithRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = seconds(cfg.RetryDelay)
	b.MaxInterval = seconds(cfg.RetryDelay * 10)
	b.Reset()

	// Use a counter to respect MaxRetries while using exponential backoff for delays
	attempt := 0
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}

		// Only upstream responses flagged as transient are retried
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		attempt++
		if attempt > cfg.MaxRetries {
			return backoff.Permanent(err)
		}

		return err
	}, backoff.WithContext(b, ctx))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
