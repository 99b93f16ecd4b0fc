package utils

import (
	"math"
	"math/rand"
	"time"
)

// CalculateExponentialBackoffWithJitter returns base * 2^(count-1) with
// jitter in the -12.5% to +12.5% range, capped at max. count is 1-based;
// non-positive counts yield 0.
func CalculateExponentialBackoffWithJitter(count int, base time.Duration, max time.Duration) time.Duration {
	if count <= 0 {
		return 0
	}

	delay := base * time.Duration(math.Pow(2, float64(count-1)))

	// Jitter keeps concurrent retries from synchronizing.
	jitter := time.Duration(rand.Int63n(int64(delay/4))) - (delay / 8)
	delay += jitter

	if delay > max {
		delay = max
	}
	return delay
}
