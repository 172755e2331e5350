package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AgentTickets   *handlers.AgentTicketsHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	// GuestLimiter throttles unauthenticated endpoints; nil disables it.
	GuestLimiter fiber.Handler
}

// RegisterRoutes wires HTTP routes. Middleware is attached per route because
// guest and agent endpoints share the /tickets prefix.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	guest := func(h fiber.Handler) []fiber.Handler {
		if cfg.GuestLimiter == nil {
			return []fiber.Handler{h}
		}
		return []fiber.Handler{cfg.GuestLimiter, h}
	}
	app.Post("/tickets", guest(cfg.Tickets.CreateTicket)...)
	app.Get("/tickets/status/check", guest(cfg.Tickets.CheckStatus)...)

	agent := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAgent(), h}
	}
	app.Get("/tickets", agent(cfg.AgentTickets.ListTickets)...)
	app.Get("/tickets/:id", agent(cfg.AgentTickets.GetTicket)...)
	app.Post("/tickets/:id/reply", agent(cfg.AgentTickets.Reply)...)
	app.Patch("/tickets/:id/status", agent(cfg.AgentTickets.UpdateStatus)...)
}
