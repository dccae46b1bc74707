package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nurseconnect-registration/internal/client"
	"nurseconnect-registration/internal/models"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *client.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, client.NewRedisClientFrom(rdb)
}

func TestContactCacheRoundTrip(t *testing.T) {
	mr, rc := setupTestRedis(t)
	cache := NewContactCache(rc)
	ctx := context.Background()

	_, ok, err := cache.GetContact(ctx, "+27820001001")
	require.NoError(t, err)
	assert.False(t, ok)

	contact := &models.Contact{
		UUID:   "c-1",
		Groups: []models.ContactGroup{{Name: "opted-out"}},
		Fields: map[string]string{"persal": "1234"},
	}
	require.NoError(t, cache.SetContact(ctx, "+27820001001", contact))
	assert.Equal(t, ContactCacheTTL, mr.TTL("contact:+27820001001"))

	got, ok, err := cache.GetContact(ctx, "+27820001001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, contact, got)

	mr.FastForward(ContactCacheTTL)
	_, ok, err = cache.GetContact(ctx, "+27820001001")
	require.NoError(t, err)
	assert.False(t, ok)
}
