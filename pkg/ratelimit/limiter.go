package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outbound requests
type Limiter interface {
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Allow reports whether a request may proceed now without waiting
	Allow() bool
}

// RequestLimiter caps provider requests per minute using a token bucket
type RequestLimiter struct {
	limiter *rate.Limiter
}

// NewRequestLimiter creates a limiter admitting requestsPerMinute requests with
// a burst of one. A non-positive rate disables limiting.
func NewRequestLimiter(requestsPerMinute int) *RequestLimiter {
	if requestsPerMinute <= 0 {
		return &RequestLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &RequestLimiter{limiter: rate.NewLimiter(rate.Every(every), 1)}
}

func (l *RequestLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

func (l *RequestLimiter) Allow() bool {
	return l.limiter.Allow()
}
