package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces consecutive operations apart
type Pacer interface {
	Pace(ctx context.Context) error
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Jitter pauses for a uniform random duration in [0, MaxDelay) on every call
type Jitter struct {
	MaxDelay time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	sleep SleepFunc
}

// JitterOption customises a Jitter
type JitterOption func(*Jitter)

// WithRand sets the random source
func WithRand(rng *rand.Rand) JitterOption {
	return func(j *Jitter) { j.rng = rng }
}

// WithSleep replaces the sleep implementation
func WithSleep(sleep SleepFunc) JitterOption {
	return func(j *Jitter) { j.sleep = sleep }
}

// NewJitter creates a pacer with the given upper bound
func NewJitter(maxDelay time.Duration, opts ...JitterOption) *Jitter {
	j := &Jitter{
		MaxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Next draws the next pause without sleeping
func (j *Jitter) Next() time.Duration {
	if j.MaxDelay <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rng.Int63n(int64(j.MaxDelay)))
}

// Pace sleeps for the next drawn pause
func (j *Jitter) Pace(ctx context.Context) error {
	d := j.Next()
	if d == 0 {
		return ctx.Err()
	}
	return j.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
