// Package rate paces outbound Gmail calls.
package rate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter gates outbound API calls so message fetching stays under Gmail quotas.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket refills lazily at a fixed rate and allows bursts up to its capacity.
type TokenBucket struct {
	mu       sync.Mutex
	interval time.Duration
	capacity int
	tokens   int
	last     time.Time
	now      func() time.Time
}

// NewTokenBucket returns a limiter that releases rps tokens per second with a
// burst of rps. The first call never waits.
func NewTokenBucket(rps int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	return &TokenBucket{
		interval: time.Second / time.Duration(rps),
		capacity: rps,
		tokens:   1,
		now:      time.Now,
	}
}

// Wait blocks until a token is available or the context is canceled.
func (t *TokenBucket) Wait(ctx context.Context) error {
	for {
		delay := t.reserve()
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate wait canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// reserve takes a token if one is available and otherwise reports how long
// until the next refill.
func (t *TokenBucket) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if t.last.IsZero() {
		t.last = now
	}
	if elapsed := now.Sub(t.last); elapsed >= t.interval {
		refill := int(elapsed / t.interval)
		t.tokens += refill
		if t.tokens > t.capacity {
			t.tokens = t.capacity
		}
		t.last = t.last.Add(time.Duration(refill) * t.interval)
	}
	if t.tokens > 0 {
		t.tokens--
		return 0
	}
	return t.interval - now.Sub(t.last)
}

var _ Limiter = (*TokenBucket)(nil)
