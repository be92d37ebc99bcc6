package ratelimit

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLimiterBurstOfOne(t *testing.T) {
	limiter := NewRequestLimiter(60)

	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestRequestLimiterDisabled(t *testing.T) {
	limiter := NewRequestLimiter(0)

	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow())
	}
	assert.NoError(t, limiter.Wait(context.Background()))
}

func TestRequestLimiterWaitCancelled(t *testing.T) {
	limiter := NewRequestLimiter(1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx))
}

func TestJitterStaysBelowMax(t *testing.T) {
	j := NewJitter(2*time.Second, WithRand(rand.New(rand.NewSource(1))))

	for i := 0; i < 1000; i++ {
		d := j.Next()
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.Less(t, d, 2*time.Second)
	}
}

func TestJitterPaceUsesInjectedSleep(t *testing.T) {
	var slept []time.Duration
	j := NewJitter(time.Second,
		WithRand(rand.New(rand.NewSource(7))),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
	)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Pace(context.Background()))
	}
	assert.Len(t, slept, 5)
}

func TestJitterZeroMaxDoesNotSleep(t *testing.T) {
	called := false
	j := NewJitter(0, WithSleep(func(ctx context.Context, d time.Duration) error {
		called = true
		return nil
	}))

	assert.NoError(t, j.Pace(context.Background()))
	assert.False(t, called)
}

func TestJitterPaceCancelled(t *testing.T) {
	j := NewJitter(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, j.Pace(ctx), context.Canceled)
}
