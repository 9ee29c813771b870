package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimiter counts requests per client IP in fixed Redis windows.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Limit returns middleware enforcing the limit under the given key prefix.
// Redis failures let the request through.
func (rl *RateLimiter) Limit(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", prefix, c.ClientIP())

		count, ttl, err := rl.hit(c, key)
		if err != nil {
			log.Warn().Err(err).Msg("Rate limiter unavailable")
			c.Next()
			return
		}

		if count > int64(rl.limit) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", ttl.Seconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// hit counts one request against key and returns the window's count and
// remaining time. A counter left without an expiry gets one here, so a
// failed EXPIRE never pins a client above the limit.
func (rl *RateLimiter) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to count request: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.client.Del(ctx, key)
			return 0, 0, fmt.Errorf("failed to set window expiry: %w", err)
		}
		ttl = rl.window
	}
	return incr.Val(), ttl, nil
}
