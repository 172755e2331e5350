package ratelimit

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// Middleware rejects requests over the limit with 429. Limiter errors let the
// request through.
func Middleware(limiter RateLimiter, limits Limits, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP() + ":" + c.Method() + ":" + c.Route().Path

		allowed, err := limiter.Allow(c.UserContext(), key, limits)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				zap.String("key", key),
				zap.Error(err))
			return c.Next()
		}
		if !allowed {
			return apperrors.NewRateLimited("too many requests, please try again later")
		}
		return c.Next()
	}
}
