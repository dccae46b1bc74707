package client

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisClientFrom(rdb)
}

func TestRedisClientGetMissingKey(t *testing.T) {
	_, rc := setupTestRedis(t)

	_, err := rc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisClientIncrWithExpire(t *testing.T) {
	mr, rc := setupTestRedis(t)
	ctx := context.Background()

	n, err := rc.IncrWithExpire(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = rc.IncrWithExpire(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, time.Minute, mr.TTL("counter"))
}

func TestRedisClientHealthCheck(t *testing.T) {
	_, rc := setupTestRedis(t)
	assert.NoError(t, rc.HealthCheck(context.Background()))
}
