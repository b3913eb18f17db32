package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	pkgredis "github.com/substring/auth-backend/pkg/redis"
	"github.com/substring/auth-backend/pkg/response"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for the login rate limiter
type RateLimitConfig struct {
	// MaxAttempts per client IP per window
	MaxAttempts int
	// Window is the counting window
	Window time.Duration
}

// DefaultRateLimitConfig allows 10 attempts per IP per minute
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MaxAttempts: 10,
		Window:      time.Minute,
	}
}

// RateLimit throttles credential endpoints per client IP with a Redis
// counter. The first increment in a window sets the TTL, so the counter
// expires on its own. If Redis is down the request passes through:
// availability of login wins over throttling.
func RateLimit(client *pkgredis.Client, cfg *RateLimitConfig, log *zap.Logger) gin.HandlerFunc {
	if cfg == nil {
		cfg = DefaultRateLimitConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", c.FullPath(), c.ClientIP())
		ctx := c.Request.Context()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(ctx, key, cfg.Window)
		}

		if count > int64(cfg.MaxAttempts) {
			response.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many attempts, try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
