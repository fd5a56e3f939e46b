package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryConfig bounds Retry. Zero fields take the defaults.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64

	// Retryable reports whether a failed attempt is worth repeating. Nil
	// treats every error as transient.
	Retryable func(error) bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.JitterFraction < 0 || c.JitterFraction > 1 {
		c.JitterFraction = 0.1
	}
	return c
}

// Retry calls fn until it succeeds, returns a non-retryable error, runs out
// of attempts or ctx is done. Delays grow geometrically up to MaxDelay.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	delay := cfg.InitialDelay
	var err error
	attempt := 1
	for ; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				logger.Info("operation recovered", "attempt", attempt)
			}
			return nil
		}
		if attempt == cfg.MaxAttempts || (cfg.Retryable != nil && !cfg.Retryable(err)) {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}

		wait := jitter(delay, cfg.JitterFraction)
		logger.Warn("attempt failed", "attempt", attempt, "max_attempts", cfg.MaxAttempts, "error", err, "next_delay", wait)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return fmt.Errorf("%s failed after %d attempt(s): %w", name, attempt, err)
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction == 0 {
		return d
	}
	spread := float64(d) * fraction * (2*rand.Float64() - 1)
	if j := time.Duration(float64(d) + spread); j > 0 {
		return j
	}
	return d
}
