package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohamedammareid/finance/internal/logger"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     time.Millisecond,
		MaxInterval:         2 * time.Millisecond,
		Multiplier:          2.0,
		MaxElapsedTime:      200 * time.Millisecond,
		RandomizationFactor: 0,
	}
}

func TestRetryWithConfig(t *testing.T) {
	errTransient := errors.New("connection reset")
	errFatal := errors.New("malformed event")

	tests := []struct {
		name         string
		failures     int
		permanent    bool
		wantErr      error
		wantAttempts int
	}{
		{name: "first_attempt", failures: 0, wantAttempts: 1},
		{name: "recovers_after_retries", failures: 2, wantAttempts: 3},
		{name: "permanent_error_stops", failures: 5, permanent: true, wantErr: errFatal, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			op := func(ctx context.Context) error {
				attempts++
				if attempts <= tt.failures {
					if tt.permanent {
						return Permanent(errFatal)
					}
					return errTransient
				}
				return nil
			}

			err := RetryWithConfig(context.Background(), op, fastConfig(), logger.NewNoOpLogger())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, attempts)
			}
		})
	}
}

func TestRetryWithConfig_GivesUp(t *testing.T) {
	errTransient := errors.New("connection reset")
	op := func(ctx context.Context) error { return errTransient }

	cfg := fastConfig()
	cfg.MaxElapsedTime = 20 * time.Millisecond
	if err := RetryWithConfig(context.Background(), op, cfg, logger.NewNoOpLogger()); !errors.Is(err, errTransient) {
		t.Errorf("expected last error, got %v", err)
	}
}

func TestRetryWithConfig_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	op := func(ctx context.Context) error {
		called = true
		return nil
	}
	if err := RetryWithConfig(ctx, op, fastConfig(), logger.NewNoOpLogger()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("operation should not run on a cancelled context")
	}
}

func TestDefaultPublishRetryConfig_IsBounded(t *testing.T) {
	cfg := DefaultPublishRetryConfig()
	if cfg.MaxElapsedTime <= 0 {
		t.Fatalf("publish retries must give up, got MaxElapsedTime %s", cfg.MaxElapsedTime)
	}
	if cfg.InitialInterval <= 0 || cfg.MaxInterval < cfg.InitialInterval || cfg.Multiplier < 1 {
		t.Errorf("unexpected backoff shape: %+v", cfg)
	}
}
