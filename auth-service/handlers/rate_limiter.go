package handlers

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a fixed-window, in-process limiter. Counters are reset every
// window by a background goroutine that runs until Close.
type RateLimiter struct {
	attempts map[string]int
	limit    int
	mutex    sync.Mutex
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rateLimiter := &RateLimiter{
		attempts: make(map[string]int),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	go rateLimiter.cleanup()
	return rateLimiter
}

// reset the attempts map every window duration
func (rateLimiter *RateLimiter) cleanup() {
	ticker := time.NewTicker(rateLimiter.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rateLimiter.mutex.Lock()
			rateLimiter.attempts = make(map[string]int)
			rateLimiter.mutex.Unlock()
		case <-rateLimiter.done:
			return
		}
	}
}

func (rateLimiter *RateLimiter) Allow(_ context.Context, key string) bool {
	rateLimiter.mutex.Lock()
	defer rateLimiter.mutex.Unlock()

	if rateLimiter.attempts[key] >= rateLimiter.limit {
		return false
	}
	rateLimiter.attempts[key]++
	return true
}

func (rateLimiter *RateLimiter) Close() error {
	rateLimiter.once.Do(func() { close(rateLimiter.done) })
	return nil
}
