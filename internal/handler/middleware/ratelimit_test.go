package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerKeyBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("user:a"))
	assert.True(t, rl.allow("user:a"))
	assert.False(t, rl.allow("user:a"))
	assert.True(t, rl.allow("user:b"), "buckets are independent")

	now = now.Add(time.Second)
	assert.True(t, rl.allow("user:a"), "one token refills per second at 60/min")
}

func TestRateLimiter_PrunesIdleVisitors(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }

	rl.allow("user:a")
	now = now.Add(limiterIdle + 2*time.Minute)
	rl.allow("user:b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "user:a")
	assert.Contains(t, rl.visitors, "user:b")
}
