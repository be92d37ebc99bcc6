package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imgharvest/pkg/config"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

// Operation is a unit of work that might need retrying
type Operation func(ctx context.Context) error

// OperationWithResult is a unit of work that returns a result and might need retrying
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RateLimitBackoff replaces Backoff after a rate_limit error when set
	RateLimitBackoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

// FromSettings builds a retry configuration from the loaded application settings
func FromSettings(settings config.RetryConfig, log logger.Logger) *Config {
	backoff := NewExponentialBackoff(settings)
	cfg := &Config{
		MaxAttempts:      settings.MaxAttempts,
		Backoff:          backoff,
		RateLimitBackoff: backoff.Slower(),
		RetryIf:          DefaultRetryIf,
		Logger:           log,
	}
	if !settings.Enabled {
		cfg.MaxAttempts = 1
	}
	return cfg
}

// DefaultRetryIf retries typed errors the errors package marks retryable.
// A typed error decides by its type even when it wraps a deadline, so a
// request timeout classified as a network error is retried; bare context
// errors are final.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}

// Do executes op until it succeeds, returns a non-retryable error, or attempts run out
func Do(ctx context.Context, cfg *Config, op Operation) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			log.WarnWithFields("max retry attempts exceeded", map[string]interface{}{
				"attempts":   cfg.MaxAttempts,
				"last_error": lastErr.Error(),
			})
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("retry cancelled: %w", ctxErr)
		}
		if !retryIf(err) {
			return err
		}
		if cfg.MaxAttempts > 0 && attempt == cfg.MaxAttempts {
			continue
		}

		delay := cfg.delayFor(attempt, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay":        delay,
			"max_attempts": cfg.MaxAttempts,
		})

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, cfg *Config, op OperationWithResult[T]) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

func (c *Config) delayFor(attempt int, err error) time.Duration {
	if c.RateLimitBackoff != nil && errs.Is(err, errs.ErrorTypeRateLimit) {
		return c.RateLimitBackoff.NextDelay(attempt)
	}
	if c.Backoff == nil {
		return 0
	}
	return c.Backoff.NextDelay(attempt)
}
