package services

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name    string
		rate    int
		offsets []time.Duration
		want    []bool
	}{
		{
			name:    "first request accepted",
			rate:    30,
			offsets: []time.Duration{0},
			want:    []bool{true},
		},
		{
			name:    "burst within interval rejected",
			rate:    30,
			offsets: []time.Duration{0, 500 * time.Millisecond, 1999 * time.Millisecond},
			want:    []bool{true, false, false},
		},
		{
			name:    "request exactly at interval accepted",
			rate:    30,
			offsets: []time.Duration{0, 2 * time.Second},
			want:    []bool{true, true},
		},
		{
			name:    "rejection does not move the window",
			rate:    30,
			offsets: []time.Duration{0, 1500 * time.Millisecond, 2 * time.Second, 3 * time.Second},
			want:    []bool{true, false, true, false},
		},
		{
			name:    "uneven interval boundary",
			rate:    7,
			offsets: []time.Duration{0, time.Minute / 7, time.Minute/7 + time.Minute/7 - time.Nanosecond},
			want:    []bool{true, true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.rate)
			for i, offset := range tt.offsets {
				got := rl.Allow("10.0.0.1", base.Add(offset))
				assert.Equal(t, tt.want[i], got, "request %d at +%s", i, offset)
			}
		})
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(30)
	now := time.Now()

	assert.True(t, rl.Allow("a", now))
	assert.True(t, rl.Allow("b", now))
	assert.False(t, rl.Allow("a", now.Add(time.Second)))
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_DefaultRate(t *testing.T) {
	rl := NewRateLimiter(0)
	assert.Equal(t, 2*time.Second, rl.MinInterval())
}

func TestRateLimiter_ConcurrentSameClient(t *testing.T) {
	rl := NewRateLimiter(30)
	now := time.Now()

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared", now) {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}

func TestRateLimiter_ConcurrentManyClients(t *testing.T) {
	rl := NewRateLimiter(30)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.True(t, rl.Allow(fmt.Sprintf("client-%d", i), now))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, rl.Len())
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(30)
	now := time.Now()

	rl.Allow("old", now.Add(-time.Hour))
	rl.Allow("fresh", now.Add(-time.Second))

	removed := rl.Sweep(10*time.Minute, now)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, rl.Len())

	// fresh is still throttled after the sweep
	assert.False(t, rl.Allow("fresh", now))
}

func TestRateLimiter_SweepNeverReopensWindow(t *testing.T) {
	rl := NewRateLimiter(30)
	now := time.Now()

	rl.Allow("client", now.Add(-time.Second))
	assert.Zero(t, rl.Sweep(time.Millisecond, now))
	assert.False(t, rl.Allow("client", now))
}
