package server

import (
	"sync"
	"time"
)

// limitEntry tracks one client's request count inside the current window.
type limitEntry struct {
	resetAt time.Time
	count   int
}

// Limiter is a fixed-window rate limiter keyed by client IP. It owns its map
// exclusively; a background sweep removes expired entries so memory stays
// bounded under many distinct clients.
type Limiter struct {
	entries map[string]*limitEntry
	stopCh  chan struct{}
	limit   int
	window  time.Duration
	mu      sync.Mutex
}

// NewLimiter creates a limiter allowing limit requests per window per key
// and starts its sweep goroutine. Callers must Close it.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}

	l := &Limiter{
		entries: make(map[string]*limitEntry),
		stopCh:  make(chan struct{}),
		limit:   limit,
		window:  window,
	}

	go l.sweep()

	return l
}

// Allow records a request for key and reports whether it fits in the current
// window. When rejected, retryAfter is the positive time left until the
// window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &limitEntry{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}

	e.count++
	if e.count > l.limit {
		return false, e.resetAt.Sub(now)
	}
	return true, 0
}

// size returns the number of tracked keys.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweep periodically drops entries whose window has passed.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for key, e := range l.entries {
				if now.After(e.resetAt) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Close stops the sweep goroutine.
func (l *Limiter) Close() {
	close(l.stopCh)
}
