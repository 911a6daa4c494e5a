package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/mohamedammareid/finance/internal/logger"
)

// RetryConfig defines the configuration for the retry mechanism
type RetryConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	MaxElapsedTime      time.Duration
	RandomizationFactor float64
}

// DefaultPublishRetryConfig returns the retry configuration used when
// publishing settled trade events to a downstream sink.
func DefaultPublishRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     50 * time.Millisecond,
		MaxInterval:         500 * time.Millisecond,
		Multiplier:          2.0,
		MaxElapsedTime:      3 * time.Second,
		RandomizationFactor: 0.3,
	}
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func(ctx context.Context) error

// Permanent marks err as not worth retrying. RetryWithConfig returns the
// wrapped error unchanged.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// RetryWithConfig retries op with exponential backoff until it succeeds, the
// elapsed time exceeds cfg.MaxElapsedTime, op returns a Permanent error or ctx
// is done.
func RetryWithConfig(ctx context.Context, op RetryableOperation, cfg RetryConfig, log *logger.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.Multiplier = cfg.Multiplier
	b.MaxElapsedTime = cfg.MaxElapsedTime
	b.RandomizationFactor = cfg.RandomizationFactor
	b.Reset()

	var attempt int
	start := time.Now()

	err := backoff.RetryNotify(
		func() error {
			attempt++
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return op(ctx)
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			log.Warn("retrying operation after failure",
				logger.Error(err),
				logger.Int("attempt", attempt),
				logger.Duration("backoff_duration", d),
				logger.Duration("elapsed", time.Since(start)))
		},
	)

	if err != nil {
		log.Error("operation failed",
			logger.Error(err),
			logger.Int("attempts", attempt),
			logger.Duration("total_duration", time.Since(start)))
	} else if attempt > 1 {
		log.Info("operation succeeded after retries",
			logger.Int("attempts", attempt),
			logger.Duration("total_duration", time.Since(start)))
	}

	return err
}
