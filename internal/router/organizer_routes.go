package router

import (
	"github.com/labstack/echo/v4"

	"github.com/stuvents/events-api/internal/handler"
	"github.com/stuvents/events-api/internal/middleware"
)

// RegisterOrganizer registers ORGANIZER-scoped endpoints under
// /v1/organizer: event creation/listing and the ticket type
// lifecycle.
func RegisterOrganizer(e *echo.Echo, h *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group(
		"/v1/organizer",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ORGANIZER"),
	)

	g.POST("/events", h.CreateEvent)
	g.GET("/events", h.ListMyEvents)

	g.POST("/events/:id/ticket-types", h.CreateTicketType)
	g.PUT("/events/:id/ticket-types/:ttID", h.UpdateTicketType)
	g.DELETE("/events/:id/ticket-types/:ttID", h.DeleteTicketType)
}
