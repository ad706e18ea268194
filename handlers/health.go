package handlers

import (
	"github.com/CANDRY15/flashprint/database"
	"github.com/gofiber/fiber/v2"
)

// HandleCheckHealth reports whether the API and its database are reachable
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"database": "down",
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "database": "up"})
}
