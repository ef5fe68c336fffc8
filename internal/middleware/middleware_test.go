package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := CheckRateLimit(ctx, rdb, "production", "writes", "ip:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, err := CheckRateLimit(ctx, rdb, "production", "writes", "ip:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = CheckRateLimit(ctx, rdb, "production", "writes", "ip:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other callers keep their own budget")

	mr.FastForward(2 * time.Minute)
	ok, err = CheckRateLimit(ctx, rdb, "production", "writes", "ip:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "window expiry resets the counter")
}

func TestCheckRateLimit_DisabledOutsideProduction(t *testing.T) {
	for _, env := range []string{"", "test", "development"} {
		ok, err := CheckRateLimit(context.Background(), nil, env, "writes", "ip:1", 0, time.Minute)
		require.NoError(t, err, env)
		assert.True(t, ok, env)
	}
}

func TestCheckRateLimit_UsesConfiguredEnvNotProcessEnv(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	_, rdb := newRedis(t)
	ctx := context.Background()

	ok, err := CheckRateLimit(ctx, rdb, "staging", "writes", "ip:9", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckRateLimit(ctx, rdb, "staging", "writes", "ip:9", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a configured environment outside dev/test must be limited")
}

func TestRateLimit_WritesOnly(t *testing.T) {
	_, rdb := newRedis(t)

	app := fiber.New()
	app.Use(WritesOnly(RateLimit(rdb, "production", 1, time.Minute, "writes")))
	app.Get("/api/posts", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/api/posts", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/posts", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/api/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/api/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "RATE_LIMITED")
}

func TestRateLimit_FailurePolicies(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	tests := []struct {
		name   string
		policy FailPolicy
		want   int
	}{
		{"fail open", FailOpen, fiber.StatusOK},
		{"fail closed", FailClosed, fiber.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(RateLimitWithPolicy(rdb, "production", 5, time.Minute, tt.policy))
			app.Post("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

			resp, err := app.Test(httptest.NewRequest("POST", "/x", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestContextMiddleware_PropagatesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		rid, _ := c.UserContext().Value(RequestIDKey).(string)
		return c.SendString(rid)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "req-123", string(body))
}

func TestStructuredLogger_PassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(StructuredLogger())
	app.Get("/boom", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusInternalServerError) })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
