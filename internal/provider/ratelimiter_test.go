package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func limiterAt(burst int, interval time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(burst, interval)
	l.now, l.last = clock.now, clock.t
	return l, clock
}

func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestRateLimiterBucket(t *testing.T) {
	l, clock := limiterAt(3, time.Second)

	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
	}
	if err := l.Wait(cancelled()); !errors.Is(err, context.Canceled) {
		t.Fatalf("empty bucket should block until the context ends, got %v", err)
	}

	clock.advance(2500 * time.Millisecond)
	for i := 0; i < 2; i++ {
		if err := l.Wait(cancelled()); err != nil {
			t.Fatalf("refilled token %d: %v", i, err)
		}
	}
	if err := l.Wait(cancelled()); err == nil {
		t.Fatal("only two tokens should have refilled")
	}

	clock.advance(time.Hour)
	l.mu.Lock()
	l.refill()
	tokens := l.tokens
	l.mu.Unlock()
	if tokens != 3 {
		t.Fatalf("refill must cap at the burst, got %d", tokens)
	}
}

func TestRateLimiterWaitsForRealTime(t *testing.T) {
	l := NewRateLimiter(1, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = l.Wait(ctx)
	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("expected a token after the interval, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("wait took far longer than one interval")
	}
}

func TestRateLimiterEdges(t *testing.T) {
	var nilLimiter *RateLimiter
	if err := nilLimiter.Wait(cancelled()); err != nil {
		t.Fatalf("nil limiter should never block, got %v", err)
	}
	unlimited := NewRateLimiter(0, 0)
	for i := 0; i < 5; i++ {
		if err := unlimited.Wait(cancelled()); err != nil {
			t.Fatalf("zero interval should not limit, got %v", err)
		}
	}
}
