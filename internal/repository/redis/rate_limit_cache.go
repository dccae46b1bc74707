package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/client"
	"nurseconnect-registration/internal/util"
)

const rateLimitPrefix = "rate_limit:"

// RateLimitCache counts requests in fixed windows. Each window gets its own
// key so counters expire on their own once the window has passed.
type RateLimitCache struct {
	client *client.RedisClient
	now    func() time.Time
}

func NewRateLimitCache(client *client.RedisClient) *RateLimitCache {
	return &RateLimitCache{client: client, now: time.Now}
}

// Allow increments the counter for scope and key and reports whether the
// request is within limit for the current window.
func (c *RateLimitCache) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	slot := c.now().UnixNano() / int64(window)
	rateLimitKey := rateLimitPrefix + scope + ":" + key + ":" + strconv.FormatInt(slot, 10)

	count, err := c.client.IncrWithExpire(ctx, rateLimitKey, window)
	if err != nil {
		util.Error("Failed to increment rate limit counter",
			zap.String("scope", scope),
			zap.Error(err))
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count > int64(limit) {
		util.Debug("Rate limit exceeded",
			zap.String("scope", scope),
			zap.Int64("count", count),
			zap.Int("limit", limit))
		return false, nil
	}
	return true, nil
}
