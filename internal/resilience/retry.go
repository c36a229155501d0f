package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls how often a provider request is repeated.
type RetryConfig struct {
	// MaxAttempts is the total number of tries; 1 disables retries.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry, doubled per retry
	// and capped at MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// ThrottleFactor multiplies the delay after a Throttled failure.
	ThrottleFactor float64

	// JitterFraction spreads each delay by ±fraction.
	JitterFraction float64

	// Classify overrides the package Classify when set.
	Classify func(err error) Class

	// OnRetry runs before each backoff sleep.
	OnRetry func(attempt int, class Class, err error)
}

// DefaultRetryConfig performs a single attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    1,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		ThrottleFactor: 4,
		JitterFraction: 0.25,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.ThrottleFactor < 1 {
		c.ThrottleFactor = 1
	}
	if c.Classify == nil {
		c.Classify = Classify
	}
	return c
}

// Do runs fn until it succeeds, returns a Permanent error, the attempt
// budget is spent or ctx is done. The last error is returned.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.normalized()

	var err error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		class := cfg.Classify(err)
		if ctx.Err() != nil || class == Permanent || attempt == cfg.MaxAttempts-1 {
			return err
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, class, err)
		}

		timer := time.NewTimer(backoff(attempt, class, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func backoff(attempt int, class Class, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if class == Throttled {
		delay *= cfg.ThrottleFactor
	}
	delay = math.Min(delay, float64(cfg.MaxBackoff))
	if cfg.JitterFraction > 0 {
		delay += (rand.Float64()*2 - 1) * delay * cfg.JitterFraction
	}
	return time.Duration(math.Max(delay, 0))
}

// RetryLogger returns an OnRetry callback that logs through zap.
func RetryLogger(provider, operation string) func(int, Class, error) {
	return func(attempt int, class Class, err error) {
		zap.L().Warn("provider: retrying request",
			zap.String("provider", provider),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Stringer("class", class),
			zap.Error(err),
		)
	}
}
