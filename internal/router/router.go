// Package router wires handlers and middleware to routes. Grouping
// mirrors the access model: /v1/auth is open, /v1/events is public,
// bookings require any authenticated role and /v1/organizer requires
// the ORGANIZER role.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/stuvents/events-api/internal/handler"
	"github.com/stuvents/events-api/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
// Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication endpoints. Unauthenticated
// operations live under /v1/auth; /v1/me requires a valid token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout works with either a bearer token or a refresh_token in
	// the body, so it stays outside the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("USER", "ORGANIZER"))
	auth.GET("/me", a.Me)
}
