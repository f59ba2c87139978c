package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/integration-service/internal/api/http/handlers"
	"github.com/spec-kit/integration-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Webhook         *handlers.WebhookHandler
	Sync            *handlers.SyncHandler
	AdminMiddleware *auth.AdminMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhooks/jira", cfg.Webhook.HandleJiraWebhook)

	admin := app.Group("/admin", cfg.AdminMiddleware.Handle)
	admin.Post("/tickets/:key/sync-replies", cfg.Sync.SyncTicketReplies)
	admin.Post("/sync-replies", cfg.Sync.SyncAllReplies)
	admin.Get("/tickets/:key", cfg.Sync.GetTicket)
	admin.Get("/threads/:id/links", cfg.Sync.GetThreadLinks)
	admin.Get("/metrics", cfg.Sync.GetMetrics)
}
