package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"wingo/helpers"

	"github.com/gofiber/fiber/v2"
)

// Sign returns the hex HMAC-SHA256 an admin client sends in X-Signature.
func Sign(secret, method, path string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// AdminAuth checks X-Signature against method, path and raw body. An empty
// secret disables the admin routes.
func AdminAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusForbidden, "ADMIN_DISABLED")
		}

		signature := c.Get("X-Signature")
		if signature == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SIGNATURE_REQUIRED")
		}

		expected := Sign(secret, c.Method(), c.Path(), c.Body())
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_SIGNATURE")
		}

		return c.Next()
	}
}
