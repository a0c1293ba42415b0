package server

import (
	"sync"
	"time"
)

// rateLimiter is a token bucket refilled continuously from elapsed wall time.
// Each inbound frame spends one token; refused frames are tallied so the
// connection can report how much it has discarded.
type rateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	perSec   float64
	last     time.Time
	dropped  uint64
}

func newRateLimiter(capacity int, interval time.Duration) *rateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &rateLimiter{
		tokens:   float64(capacity),
		capacity: float64(capacity),
		perSec:   float64(capacity) / interval.Seconds(),
		last:     time.Now(),
	}
}

// allow spends one token if available. A refusal counts the frame as dropped.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(rl.last).Seconds(); elapsed > 0 {
		rl.tokens += elapsed * rl.perSec
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
	}
	rl.last = now

	if rl.tokens < 1 {
		rl.dropped++
		return false
	}

	rl.tokens--
	return true
}

// droppedCount reports how many frames the limiter has refused so far.
func (rl *rateLimiter) droppedCount() uint64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.dropped
}
