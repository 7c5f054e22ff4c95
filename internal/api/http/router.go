package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/api/http/handlers"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Categories     *handlers.CategoriesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/responses", cfg.Tickets.AddResponse)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachment)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Post("/:id/resolve", auth.RequireAgent(), cfg.Tickets.Resolve)
	tickets.Post("/:id/close", cfg.Tickets.Close)

	categories := app.Group("/categories")
	categories.Get("", cfg.Categories.List)
	protected := categories.Group("", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	protected.Post("", cfg.Categories.Create)
	protected.Delete("/:id", cfg.Categories.Delete)
}
