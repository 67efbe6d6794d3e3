package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"spazatrack/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimitConfig describes one fixed-window limiter. Counters live in Redis
// under "ratelimit:<Name>:<client ip>" so every API replica shares them.
type RateLimitConfig struct {
	Name   string
	Limit  int64
	Window time.Duration
}

// LoginRateLimit is applied to the public auth endpoints.
var LoginRateLimit = RateLimitConfig{Name: "auth", Limit: 20, Window: time.Minute}

// RateLimiter counts requests per client IP with INCR + EXPIRE. When Redis is
// unreachable the request is let through and a warning is logged.
func RateLimiter(rdb *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", cfg.Name, c.ClientIP())

		count, ttl, err := hit(c.Request.Context(), rdb, key, cfg.Window)
		if err != nil {
			log.Warn().Err(err).
				Str("request_id", c.GetString(RequestIDKey)).
				Str("limiter", cfg.Name).
				Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if count > cfg.Limit {
			if ttl <= 0 {
				ttl = cfg.Window
			}
			c.Header("Retry-After", strconv.Itoa(int(ttl.Round(time.Second)/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierror.New(apierror.CodeRateLimited, "too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}

// hit increments key and starts its window on the first request.
func hit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	remaining := ttl.Val()
	if remaining < 0 {
		// no expiry yet: this request opened the window
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		remaining = window
	}
	return incr.Val(), remaining, nil
}
