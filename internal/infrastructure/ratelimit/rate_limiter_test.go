package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustion(t *testing.T) {
	bucket := NewTokenBucket(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := bucket.Allow()
		assert.True(t, allowed, "request %d", i)
	}

	allowed, wait := bucket.Allow()
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
}

func TestRateLimiterIsolatesUsersAndActions(t *testing.T) {
	limiter := NewRateLimiter()

	// Exhaust create_chat for u1.
	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("u1", "create_chat")
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow("u1", "create_chat")
	assert.False(t, allowed)

	// Other actions and other users are untouched.
	allowed, _ = limiter.Allow("u1", "send_message")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("u2", "create_chat")
	assert.True(t, allowed)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	limiter := NewRateLimiter()
	limiter.Allow("u1", "typing")

	limiter.mutex.Lock()
	for _, bucket := range limiter.buckets {
		bucket.lastRefill = time.Now().Add(-2 * time.Hour)
	}
	limiter.mutex.Unlock()

	limiter.Cleanup()

	limiter.mutex.RLock()
	defer limiter.mutex.RUnlock()
	assert.Empty(t, limiter.buckets)
}
