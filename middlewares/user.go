package middlewares

import (
	"strconv"

	"wingo/helpers"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "userID"

// UserAuthMiddleware trusts the X-User-ID header set by the upstream gateway.
func UserAuthMiddleware(c *fiber.Ctx) error {
	raw := c.Get("X-User-ID")
	if raw == "" {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "USER_ID_REQUIRED")
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_USER_ID")
	}

	c.Locals(userIDKey, uint(id))
	return c.Next()
}

// UserID returns the id stored by UserAuthMiddleware.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(userIDKey).(uint)
	return id, ok
}
