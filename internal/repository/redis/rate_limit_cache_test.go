package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitCacheAllow(t *testing.T) {
	mr, rc := setupTestRedis(t)
	cache := NewRateLimitCache(rc)
	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := cache.Allow(ctx, "site", "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := cache.Allow(ctx, "site", "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cache.Allow(ctx, "site", "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other keys have their own counter")

	ok, err = cache.Allow(ctx, "api", "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "scopes are counted separately")

	now = now.Add(time.Minute)
	ok, err = cache.Allow(ctx, "site", "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "a new window starts a new count")

	assert.Greater(t, len(mr.Keys()), 0)
}

func TestRateLimitCacheRedisDown(t *testing.T) {
	mr, rc := setupTestRedis(t)
	cache := NewRateLimitCache(rc)
	mr.Close()

	ok, err := cache.Allow(context.Background(), "site", "10.0.0.1", 3, time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
