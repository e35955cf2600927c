// Package bandwidth meters each player's byte throughput with a token bucket.
package bandwidth

import (
	"fmt"
	"time"
)

// DefaultBurst bounds how much unspent bandwidth can accumulate, in bytes.
const DefaultBurst = 10 * 1024

// Bucket is a token bucket: a reservoir of consumable bytes replenished at a
// fixed rate. It is owned exclusively by the game loop and needs no locking.
type Bucket struct {
	available float64
	capacity  float64
	rate      float64
}

// NewBucket returns a full bucket with the given capacity (bytes) and refill
// rate (bytes per second). Capacity and rate are fixed for the bucket's life.
func NewBucket(capacity, ratePerSecond float64) (*Bucket, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("bucket capacity must be positive, got %v", capacity)
	}
	if ratePerSecond < 0 {
		return nil, fmt.Errorf("bucket rate must not be negative, got %v", ratePerSecond)
	}
	return &Bucket{available: capacity, capacity: capacity, rate: ratePerSecond}, nil
}

// Refill adds rate*elapsed tokens, clamped to capacity.
func (b *Bucket) Refill(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	b.available += b.rate * elapsed.Seconds()
	if b.available > b.capacity {
		b.available = b.capacity
	}
}

// Consume grants up to n whole tokens. allowed is min(available, n) truncated
// to an integer, excess is the remainder; allowed+excess == n always holds and
// neither value is ever negative.
func (b *Bucket) Consume(n int) (allowed, excess int) {
	if n <= 0 {
		return 0, 0
	}
	allowed = int(b.available)
	if allowed > n {
		allowed = n
	}
	if allowed < 0 {
		allowed = 0
	}
	b.available -= float64(allowed)
	if b.available < 0 {
		b.available = 0
	}
	return allowed, n - allowed
}

// Available returns the current token count. Exposed for telemetry.
func (b *Bucket) Available() float64 {
	return b.available
}

// Capacity returns the fixed bucket capacity.
func (b *Bucket) Capacity() float64 {
	return b.capacity
}
