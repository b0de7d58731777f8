package http

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"docdex/internal/config"
	"docdex/internal/metrics"
)

// requestMiddleware assigns a request id, logs the request, and records
// metrics.
func requestMiddleware(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		c.Set("X-Request-Id", reqID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		metrics.RecordRequest(c.Method(), c.Path(), status, latency.Milliseconds())

		logger.Info("request",
			"request_id", reqID,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", latency.Milliseconds(),
		)
		return err
	}
}

// rateLimitMiddleware enforces a per-minute fixed window per client IP using
// Redis. Redis failures admit the request rather than taking the API down.
func rateLimitMiddleware(cfg config.RateLimitConfig, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Enabled || cfg.PerMinute <= 0 || rdb == nil {
			return c.Next()
		}

		window := time.Now().UTC().Format("200601021504")
		key := fmt.Sprintf("docdex:rl:%s:%s", c.IP(), window)

		ctx := c.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			_ = rdb.Expire(ctx, key, time.Minute)
		}
		if count > int64(cfg.PerMinute) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Detail: "rate limit exceeded, try again later",
				Code:   "RATE_LIMIT_EXCEEDED",
			})
		}
		return c.Next()
	}
}

// bearerAuthMiddleware guards a route group with one static token.
func bearerAuthMiddleware(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		raw := c.Get("Authorization")
		presented := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
		if !strings.HasPrefix(raw, "Bearer ") ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Detail: "missing or invalid bearer token",
				Code:   "UNAUTHENTICATED",
			})
		}
		return c.Next()
	}
}
