package log

import (
	"testing"
	"time"
)

func TestRateLimiterSuppressesWithinInterval(t *testing.T) {
	r := NewRateLimiter(time.Minute)
	now := time.Now()

	if !r.Allow("x", now) {
		t.Fatal("first call must be allowed")
	}
	if r.Allow("x", now.Add(30*time.Second)) {
		t.Fatal("second call within the interval must be suppressed")
	}
	if !r.Allow("x", now.Add(time.Minute+time.Second)) {
		t.Fatal("call after the interval elapses must be allowed")
	}
}

func TestRateLimiterTagsAreIndependent(t *testing.T) {
	r := NewRateLimiter(time.Minute)
	now := time.Now()

	if !r.Allow("a", now) {
		t.Fatal("first call for tag a must be allowed")
	}
	if !r.Allow("b", now) {
		t.Fatal("first call for a different tag must be allowed regardless of tag a's state")
	}
}
