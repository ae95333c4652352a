package router

import (
	"github.com/labstack/echo/v4"

	"github.com/realmeet/slot-booking/internal/handler"
	"github.com/realmeet/slot-booking/internal/middleware"
	"github.com/realmeet/slot-booking/internal/model"
)

// RegisterOwner registers business-scoped endpoints under /v1/owner.
// All routes require a valid JWT and the BUSINESS role; ownership of
// individual activities is enforced in the handlers.
func RegisterOwner(e *echo.Echo, h *handler.OwnerHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/owner",
		append(mw,
			middleware.JWTAuth(jwtSecret),
			middleware.RequireRole(model.RoleBusiness),
		)...,
	)
	g.POST("/activities", h.CreateActivity)
	g.GET("/activities", h.ListMyActivities)
	g.POST("/activities/:id/slots", h.CreateSlot)
}
