package router

import (
	"github.com/labstack/echo/v4"

	"github.com/stuvents/events-api/internal/handler"
)

// RegisterPublic registers unauthenticated event browsing. The caller
// passes the response cache and rate limit middleware so guests share
// the same protections as the rest of the API; either may be a
// pass-through when Redis is unavailable.
func RegisterPublic(e *echo.Echo, p *handler.PublicEventHandler, mws ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mws...)
	g.GET("/events", p.List)
	g.GET("/events/:id", p.Get)
}
