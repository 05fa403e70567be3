package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpline/support-desk/internal/api/http/handlers"
	"github.com/helpline/support-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Analytics      *handlers.AnalyticsHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/staff/password/reset/request", cfg.Staff.RequestPasswordReset)
	authGroup.Post("/staff/password/reset/confirm", cfg.Staff.ConfirmPasswordReset)

	api := app.Group("/api")
	api.Post("/tickets", cfg.Tickets.SubmitTicket)
	api.Get("/tickets/lookup/:number", cfg.Tickets.LookupTicket)

	staff := api.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staff.Get("/tickets", cfg.StaffTickets.ListTickets)
	staff.Get("/tickets/:id", cfg.StaffTickets.GetTicket)
	staff.Patch("/tickets/:id", auth.RequireAdmin(), cfg.StaffTickets.UpdateTicket)
	staff.Post("/tickets/:id/assign", cfg.StaffTickets.AssignTicket)
	staff.Post("/tickets/:id/status", cfg.StaffTickets.UpdateStatus)
	staff.Get("/tickets/:id/notes", cfg.StaffTickets.ListNotes)
	staff.Post("/tickets/:id/notes", cfg.StaffTickets.AddNote)
	staff.Get("/tickets/:id/assignments", cfg.StaffTickets.ListAssignments)
	staff.Get("/analytics", cfg.Analytics.GetAnalytics)
	staff.Get("/members", cfg.Staff.ListStaff)
	staff.Get("/metrics", auth.RequireAdmin(), cfg.Health.Metrics)

	admin := api.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Post("/staff", cfg.Staff.CreateStaff)
	admin.Put("/staff/:id", cfg.Staff.UpdateStaff)
	admin.Post("/staff/:id/status", cfg.Staff.SetStaffStatus)
	admin.Post("/staff/:id/password-reset", cfg.Staff.IssuePasswordReset)
	admin.Delete("/staff/:id", cfg.Staff.DeleteStaff)
}
