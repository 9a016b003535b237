package health

import "github.com/gofiber/fiber/v2"

// Health - GET /healthz
func Health() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
