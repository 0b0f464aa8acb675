package http

import (
	"sync"
	"time"
)

// rateLimiter is a fixed one-minute window counter. A zero or negative
// limit disables it.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Time
	counter int
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{limit: limit}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Truncate(time.Minute)
	if !now.Equal(r.window) {
		r.window = now
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}
