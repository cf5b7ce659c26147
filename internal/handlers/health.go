package handlers

import "github.com/gofiber/fiber/v2"

// HealthCheck handles GET /health.
// Intentionally lightweight - no database queries, no authentication - so load
// balancers and container probes can poll it cheaply.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
