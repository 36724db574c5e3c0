package services

import (
	"context"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// DefaultRatePerMinute is the per-client request rate used when none is configured
const DefaultRatePerMinute = 30

// RateLimiter enforces a minimum spacing between accepted requests of one client.
// Rejected requests do not move the client's window.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastSeen    map[string]time.Time
}

// NewRateLimiter creates a limiter admitting ratePerMinute requests per client
func NewRateLimiter(ratePerMinute int) *RateLimiter {
	if ratePerMinute <= 0 {
		ratePerMinute = DefaultRatePerMinute
	}
	return &RateLimiter{
		minInterval: time.Minute / time.Duration(ratePerMinute),
		lastSeen:    make(map[string]time.Time),
	}
}

// Allow reports whether clientKey may proceed at now, recording now when it may
func (rl *RateLimiter) Allow(clientKey string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if last, ok := rl.lastSeen[clientKey]; ok && now.Sub(last) < rl.minInterval {
		return false
	}
	rl.lastSeen[clientKey] = now
	return true
}

// MinInterval returns the minimum spacing between two accepted requests
func (rl *RateLimiter) MinInterval() time.Duration {
	return rl.minInterval
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.lastSeen)
}

// Sweep forgets clients whose last accepted request is older than maxIdle.
// maxIdle shorter than the minimum interval would reopen throttled windows, so it is raised to it.
func (rl *RateLimiter) Sweep(maxIdle time.Duration, now time.Time) int {
	if maxIdle < rl.minInterval {
		maxIdle = rl.minInterval
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, last := range rl.lastSeen {
		if now.Sub(last) > maxIdle {
			delete(rl.lastSeen, key)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps idle clients every maxIdle until ctx is cancelled.
// A zero maxIdle keeps every client for the life of the process.
func (rl *RateLimiter) StartCleanup(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(maxIdle)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if n := rl.Sweep(maxIdle, now); n > 0 {
					klog.V(2).Infof("Rate limiter forgot %d idle clients", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
