package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/carelog/carelog/internal/api/http/handlers"
	"github.com/carelog/carelog/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Hardware       *handlers.HardwareHandler
	Notifications  *handlers.NotificationsHandler
	Webhooks       *handlers.WebhooksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhooks/email", cfg.Webhooks.EmailEvent)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	protected.Get("/organizations", cfg.Hardware.ListOrganizations)
	protected.Get("/organizations/:id/locations", cfg.Hardware.ListLocations)
	protected.Get("/hardware-types", cfg.Hardware.ListTypes)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/rating", cfg.Tickets.RateTicket)
	tickets.Get("/:id/timing", cfg.Tickets.GetTiming)

	notifications := protected.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	staff := protected.Group("/staff", auth.RequireStaff())
	staff.Post("/tickets/:id/status", cfg.StaffTickets.ChangeStatus)
	staff.Post("/tickets/:id/assign", cfg.StaffTickets.Assign)
	staff.Post("/tickets/:id/priority", cfg.StaffTickets.ChangePriority)
	staff.Post("/tickets/:id/summary", cfg.StaffTickets.GenerateSummary)
	staff.Post("/hardware", cfg.Hardware.Create)
	staff.Post("/hardware/import", cfg.Hardware.Import)
	staff.Get("/organizations/:id/hardware", cfg.Hardware.ListByOrganization)
}
