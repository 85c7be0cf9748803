package ros

import (
	"math"
	"math/rand"
	"time"
)

// nextBackoff computes spec.md §4.6 step 3's retry delay:
// min(INITIAL*FACTOR^retryCount, MAX) * (1 + U[-JITTER,+JITTER]).
func nextBackoff(retryCount int, initial time.Duration, factor float64, max time.Duration, jitter float64) time.Duration {
	raw := float64(initial) * math.Pow(factor, float64(retryCount))
	if capped := float64(max); raw > capped {
		raw = capped
	}
	sign := rand.Float64()*2 - 1 // uniform in [-1, 1]
	raw *= 1 + sign*jitter
	if raw < 0 {
		raw = 0
	}
	return time.Duration(raw)
}
