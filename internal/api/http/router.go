package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/api/http/handlers"
	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	WorkOrders     *handlers.WorkOrdersHandler
	Alerts         *handlers.AlertsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	orders := app.Group("/workorders", cfg.AuthMiddleware.Handle)
	orders.Post("", auth.RequireRole(domain.RoleSupervisor, domain.RoleAdmin), cfg.WorkOrders.Create)
	orders.Get("", cfg.WorkOrders.List)
	orders.Get("/:id", cfg.WorkOrders.Get)
	orders.Post("/:id/transition", cfg.WorkOrders.Transition)
	orders.Post("/:id/notes", cfg.WorkOrders.AddNote)
	orders.Get("/:id/notes", cfg.WorkOrders.ListNotes)
	orders.Get("/:id/history", cfg.WorkOrders.ListHistory)
	orders.Post("/:id/signature", cfg.WorkOrders.Sign)
	orders.Get("/:id/signature", cfg.WorkOrders.GetSignature)

	alerts := app.Group("/alerts", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleSupervisor, domain.RoleAdmin))
	alerts.Get("/digest", cfg.Alerts.Digest)
	alerts.Post("/run", cfg.Alerts.Run)
	alerts.Get("/last-run", cfg.Alerts.LastRun)
}
