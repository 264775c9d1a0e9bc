package embed

import (
	"context"
	"time"

	semerrors "github.com/semdex/semdex/internal/errors"
)

// RetryConfig configures the backoff applied to retryable provider failures.
type RetryConfig struct {
	MaxAttempts  int           // Total attempts including the first
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Cap on the delay between retries
	Multiplier   float64       // Exponential backoff multiplier

	// OnWait, if set, is invoked before each backoff sleep with the
	// upcoming attempt number and the wait duration.
	OnWait func(attempt int, delay time.Duration)
}

// DefaultRetryConfig returns the backoff used by the indexing engine.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// WithRetry executes fn with exponential backoff. Only errors the taxonomy
// marks retryable (rate limits, transient transport failures) are retried;
// anything else fails immediately. Context cancellation always wins over a
// pending backoff sleep.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !semerrors.IsRetryable(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		if cfg.OnWait != nil {
			cfg.OnWait(attempt+1, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
