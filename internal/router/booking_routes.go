package router

import (
	"github.com/labstack/echo/v4"

	"github.com/stuvents/events-api/internal/handler"
	"github.com/stuvents/events-api/internal/middleware"
)

// RegisterBookings registers the purchase endpoint and the buyer's
// own booking queries under /v1. Organizers can buy tickets too, so
// both roles are accepted.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER", "ORGANIZER"),
	)
	g.POST("/bookings", h.Create)
	g.GET("/my-bookings", h.ListMine)
	g.GET("/bookings/:id", h.GetByID)
}
