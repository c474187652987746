package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config holds retry configuration
type Config struct {
	Enabled            bool          // Enable/disable retry logic
	MaxAttempts        int           // Retries after the first call
	InitialDelay       time.Duration // Initial delay before first retry
	MaxDelay           time.Duration // Maximum delay between retries
	Multiplier         float64       // Exponential backoff multiplier (typically 2.0)
	Jitter             bool          // Spread each delay over [0.75, 1.25)
	RetryableErrors    []error       // Sentinels that trigger a retry (nil = all errors)
	NonRetryableErrors []error       // Sentinels that abort immediately
}

// OnlyRetry returns a copy of cfg that retries only errors wrapping one of targets.
func OnlyRetry(cfg Config, targets ...error) Config {
	cfg.RetryableErrors = append([]error(nil), targets...)
	return cfg
}

// RetryWithResult calls fn until it succeeds, a non-retryable error comes
// back, or MaxAttempts retries have been spent. Waits back off exponentially.
func RetryWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T

	if !cfg.Enabled {
		return fn()
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if matchesAny(err, cfg.NonRetryableErrors) {
			return zero, fmt.Errorf("non-retryable error: %w", err)
		}
		if len(cfg.RetryableErrors) > 0 && !matchesAny(err, cfg.RetryableErrors) {
			return zero, fmt.Errorf("error not in retryable list: %w", err)
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled during wait: %w", ctx.Err())
		case <-time.After(calculateDelay(cfg, attempt)):
		}
	}

	return zero, fmt.Errorf("max attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// calculateDelay is InitialDelay * Multiplier^attempt, capped at MaxDelay.
func calculateDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	duration := time.Duration(delay)
	if cfg.Jitter {
		jitter := duration / 4
		duration = duration - jitter + time.Duration(rand.Int63n(int64(jitter*2)+1))
	}
	return duration
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
