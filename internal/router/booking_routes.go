package router

import (
	"github.com/labstack/echo/v4"

	"github.com/realmeet/slot-booking/internal/handler"
	"github.com/realmeet/slot-booking/internal/middleware"
	"github.com/realmeet/slot-booking/internal/model"
)

// RegisterBooking registers participant-scoped booking endpoints
// under /v1.  Joining, leaving and invitation management are for
// USER accounts only; business accounts manage their activities
// through the owner routes.  Token validation stays public so
// invitees can preview an invite before signing up.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	// Public: validate shows the preview for a live token and the
	// refusal reason otherwise.  No account needed.
	e.GET("/v1/invites/:token", h.ValidateInvite, mw...)

	g := e.Group(
		"/v1",
		append(mw,
			middleware.JWTAuth(jwtSecret),
			middleware.RequireRole(model.RoleUser),
		)...,
	)
	g.POST("/slots/:id/join", h.Join)
	g.DELETE("/slots/:id/join", h.Leave)
	g.POST("/slots/:id/invites", h.IssueInvite)
	g.GET("/slots/:id/invites", h.PendingInvites)
	g.DELETE("/invites/:id", h.CancelInvite)
	g.POST("/invites/:token/redeem", h.RedeemInvite)
}
