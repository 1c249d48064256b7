// Package ratelimit provides the token bucket shared by the HTTP and gRPC
// transports.
package ratelimit

import (
	"sync"
	"time"
)

// Bucket implements a simple token bucket rate limiter.
type Bucket struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastTime time.Time
	now      func() time.Time
}

// New returns a bucket that refills at rps tokens per second and holds at
// most rps tokens. A nil *Bucket allows everything, and New returns nil
// when rps is not positive.
func New(rps int) *Bucket {
	if rps <= 0 {
		return nil
	}
	return &Bucket{
		tokens:   float64(rps),
		max:      float64(rps),
		rate:     float64(rps),
		lastTime: time.Now(),
		now:      time.Now,
	}
}

// Allow takes one token if available.
func (b *Bucket) Allow() bool {
	if b == nil {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	elapsed := now.Sub(b.lastTime).Seconds()
	b.lastTime = now

	b.tokens += elapsed * b.rate
	if b.tokens > b.max {
		b.tokens = b.max
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
