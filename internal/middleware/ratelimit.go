package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"teamsemu/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// CheckRateLimit checks if a caller has exceeded its budget for resource.
// Returns true if allowed, false if the limit is exceeded.
// env is the configured APP_ENV; limiting is disabled for "test" and
// "development" (the default when empty) so local demos are never throttled.
func CheckRateLimit(ctx context.Context, rdb redis.Cmdable, env, resource, id string, limit int, window time.Duration) (bool, error) {
	if !LimitingEnabled(env) {
		return true, nil
	}

	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// LimitingEnabled reports whether the Redis limiter applies in env.
func LimitingEnabled(env string) bool {
	switch env {
	case "", "test", "development":
		return false
	}
	return true
}

// RateLimit returns a Fiber middleware enforcing limit requests per window,
// keyed by remote IP. It defaults to the FailOpen policy.
func RateLimit(rdb redis.Cmdable, env string, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, env, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb redis.Cmdable, env string, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, env, resource, "ip:"+c.IP(), limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit unavailable, rejecting request",
					slog.String("resource", resource),
					slog.String("error", err.Error()))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
					"code":  "RATE_LIMIT_UNAVAILABLE",
				})
			}
			Logger.WarnContext(c.UserContext(), "rate limit check failed, allowing request",
				slog.String("resource", resource),
				slog.String("error", err.Error()))
			return c.Next()
		}

		if !allowed {
			observability.RateLimitRejections.WithLabelValues(resource).Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}

// WritesOnly applies h to mutating requests and lets reads through untouched.
func WritesOnly(h fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		return h(c)
	}
}
