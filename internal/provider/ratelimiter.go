package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by every feed request so a full
// universe scan stays under the feed's request quota.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	burst    int
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewRateLimiter allows burst requests, refilling one token per interval.
func NewRateLimiter(burst int, interval time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		tokens:   burst,
		burst:    burst,
		interval: interval,
		last:     time.Now(),
		now:      time.Now,
	}
}

// Wait blocks until a token is available or ctx is done. A nil limiter never
// blocks.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		wait := r.interval - r.now().Sub(r.last)
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RateLimiter) refill() {
	if r.interval <= 0 {
		r.tokens = r.burst
		return
	}
	now := r.now()
	n := int(now.Sub(r.last) / r.interval)
	if n > 0 {
		r.tokens = min(r.tokens+n, r.burst)
		r.last = r.last.Add(time.Duration(n) * r.interval)
	}
}
