package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds configuration for bounded retry with a fixed inter-attempt
// delay.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultConfig matches the document download policy: three attempts, two
// seconds apart.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// RetryableFunc represents a function that can be retried.
type RetryableFunc func() error

// Do runs fn up to MaxAttempts times, sleeping Delay between attempts, and
// returns the last error once attempts are exhausted. Context cancellation
// aborts the wait.
func Do(ctx context.Context, config Config, fn RetryableFunc) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled by context: %w", ctx.Err())
		case <-time.After(config.Delay):
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", config.MaxAttempts, lastErr)
}
