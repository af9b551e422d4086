package helpers

import (
	"github.com/gofiber/fiber/v2"
)

func JSONSuccess(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONError(c *fiber.Ctx, message string) error {
	return JSONErrorStatus(c, fiber.StatusBadRequest, message)
}

func JSONErrorStatus(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
		"data":    nil,
	})
}

// JSONPage wraps a list response with its paging window.
func JSONPage(c *fiber.Ctx, message string, items any, total int64, limit, offset int) error {
	return JSONSuccess(c, message, fiber.Map{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
