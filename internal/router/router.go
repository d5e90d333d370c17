package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/handler"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Interaction *handler.InteractionHandler
	Article     *handler.ArticleHandler
	Export      *handler.ExportHandler
	Health      *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(corsOrigins))

	// Health checks (before API group)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)

	// Prometheus
	app.Get("/metrics", handler.MetricsHandler())

	// API routes
	api := app.Group("/api")

	submitLimiter := middleware.NewSubmitRateLimiter()
	statsLimiter := middleware.NewStatsRateLimiter()
	exportLimiter := middleware.NewExportRateLimiter()

	// Interaction routes
	api.Post("/interactions", h.Interaction.Submit, submitLimiter.Handler())
	api.Get("/interactions/stats", h.Interaction.GetStats, statsLimiter.Handler())
	api.Get("/interactions/status", h.Interaction.GetStatus, statsLimiter.Handler())

	// Article snapshot
	api.Get("/articles/:articleId/stats", h.Article.GetStats, statsLimiter.Handler())

	// Export
	api.Get("/export/interactions", h.Export.Export, exportLimiter.Handler())
}
