package middlewares

import (
	"fmt"

	"wingo/helpers"
	"wingo/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// BetRateLimit caps bet submissions per user. A limiter error lets the
// request through.
func BetRateLimit(limiter services.RateLimiter, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		userID, ok := UserID(c)
		if !ok {
			return c.Next()
		}

		key := fmt.Sprintf("bets:%s:%d", c.Params("variant"), userID)
		allowed, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			log.Warn("⚠️  Rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if !allowed {
			return helpers.JSONErrorStatus(c, fiber.StatusTooManyRequests, "TOO_MANY_BETS")
		}
		return c.Next()
	}
}
