package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/realmeet/slot-booking/internal/handler"
	"github.com/realmeet/slot-booking/internal/metrics"
	"github.com/realmeet/slot-booking/internal/middleware"
	"github.com/realmeet/slot-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance: the health check and the Prometheus
// scrape endpoint.
func RegisterRoutes(e *echo.Echo, gatherer prometheus.Gatherer) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, while protected
// endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Logout accepts a JSON body with a refresh_token or a bearer
	// token in the Authorization header; no JWT middleware required.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleUser, model.RoleBusiness))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated browse endpoints.  These
// return sanitized data for activities and slots and carry no JWT or
// role middleware; the response cache middleware may wrap them.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
	e.GET("/v1/activities", p.ListActivities, mw...)
	e.GET("/v1/activities/:id", p.GetActivity, mw...)
	e.GET("/v1/activities/:id/slots", p.ListSlots, mw...)
	e.GET("/v1/slots/:id/participants", p.ListParticipants, mw...)
}
