package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"imgharvest/pkg/config"
)

// BackoffStrategy computes the wait before the next attempt
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt, capped at
// MaxDelay, then spreads it by up to JitterFactor in either direction
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64

	// Float returns values in [0, 1); nil uses math/rand
	Float func() float64
}

// DefaultExponentialBackoff mirrors the retry section of config.DefaultConfig
func DefaultExponentialBackoff() *ExponentialBackoff {
	return NewExponentialBackoff(config.DefaultConfig().Retry)
}

// NewExponentialBackoff builds the page and image fetch backoff from settings
func NewExponentialBackoff(settings config.RetryConfig) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    settings.BaseDelay,
		MaxDelay:     settings.MaxDelay,
		Multiplier:   settings.Multiplier,
		JitterFactor: settings.JitterFactor,
	}
}

// Slower returns a copy for captcha and 429 responses: a longer first wait
// that grows more gently up to a higher ceiling
func (eb *ExponentialBackoff) Slower() *ExponentialBackoff {
	slow := *eb
	slow.BaseDelay = eb.BaseDelay * 10
	slow.MaxDelay = eb.MaxDelay * 4
	slow.Multiplier = 1.5
	return &slow
}

// NextDelay returns the wait after the given failed attempt; attempt 0 waits nothing
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	growth := math.Pow(max(eb.Multiplier, 1), float64(attempt-1))
	delay := float64(eb.BaseDelay) * growth
	if eb.MaxDelay > 0 {
		delay = min(delay, float64(eb.MaxDelay))
	}

	if eb.JitterFactor > 0 {
		random := rand.Float64
		if eb.Float != nil {
			random = eb.Float
		}
		delay *= 1 + eb.JitterFactor*(2*random()-1)
	}
	return time.Duration(max(delay, 0))
}

// ConstantBackoff waits the same Delay after every failed attempt
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait sleeps for delay or until ctx is done
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
