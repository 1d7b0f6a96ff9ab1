package server

import "github.com/gofiber/fiber/v2"

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", h.HealthCheck)

	api := app.Group("/api/v1")
	{
		api.Get("/home", h.Home)
		api.Get("/options", h.Options)
		api.Get("/overview/:option", h.Overview)
		api.Get("/charts/:kind", h.Chart)
		api.Get("/metrics", h.Metrics)
		api.Post("/predict", h.Predict)
	}
}
