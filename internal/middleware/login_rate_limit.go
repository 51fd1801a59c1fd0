package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// LoginRateLimit limits login attempts per username or IP using Redis if
// available. Cache failures fail open so an outage never blocks logins.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Username string `json:"username"`
		}
		_ = c.BodyParser(&req)
		key := strings.TrimSpace(req.Username)
		if key == "" {
			key = c.IP()
		}
		redisKey := "rl:login:" + key
		cnt, err := cache.Incr(c.UserContext(), redisKey).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), redisKey, time.Minute)
		}
		if err != nil {
			return c.Next()
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
