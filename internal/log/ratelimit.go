package log

import (
	"sync"
	"time"
)

// RateLimiter tracks the last-emit time per tag under a mutex, per
// SPEC_FULL.md §3.1 — deliberately not a token-bucket library, since
// nothing in the pack's dependency set wraps rate-limited logging and
// a single timestamp comparison is all spec.md's "rate-limited log"
// requirement (§4.3, §4.5, §7) needs. Shared across components rather
// than duplicated per-package, since every caller wants the same
// last-emit-per-tag semantics.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

// NewRateLimiter returns a RateLimiter that allows at most one Allow
// per tag per interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval, last: make(map[string]time.Time)}
}

// Allow reports whether a log for tag may be emitted now, recording
// the attempt either way isn't needed — only a permitted call resets
// the window.
func (r *RateLimiter) Allow(tag string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.last[tag]; ok && now.Sub(last) < r.interval {
		return false
	}
	r.last[tag] = now
	return true
}
