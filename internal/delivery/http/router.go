package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Live read-out
		api.Get("/counters", handler.GetCounters)
		api.Get("/stats", handler.GetStats)

		// Location context
		api.Get("/locations", handler.GetLocations)
		api.Get("/location", handler.GetLocation)
		api.Put("/location/:id", handler.SetLocation)
	}
}

// ErrorHandler renders errors as the JSON envelope used by every route
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
