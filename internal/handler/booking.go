package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/realmeet/slot-booking/internal/engine"
)

// BookingHandler exposes the booking engine over HTTP: joining and
// leaving slots, and the full +1 invitation flow.  JWT authentication
// is performed by middleware for everything except token validation,
// which must work for invitees who have no account yet.
type BookingHandler struct {
	Engine *engine.Engine

	// InviteTTL is the deployment-wide invitation lifetime used when
	// the request does not specify one.  Zero selects the engine
	// default.
	InviteTTL time.Duration
}

// NewBookingHandler constructs a BookingHandler.  The engine must be
// non-nil.
func NewBookingHandler(eng *engine.Engine, inviteTTL time.Duration) *BookingHandler {
	if eng == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: eng, InviteTTL: inviteTTL}
}

// bookingError translates engine outcomes into HTTP responses.  The
// mapping is part of the API contract: 409 for conflicts the client
// must resolve, 410 for expired tokens, 503 for transient storage
// failures that are safe to retry.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrSlotNotFound),
		errors.Is(err, engine.ErrActivityNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	case errors.Is(err, engine.ErrInviteNotFound),
		errors.Is(err, engine.ErrInviteCancelled):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invitation not found"})
	case errors.Is(err, engine.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "activity is full"})
	case errors.Is(err, engine.ErrSlotEnded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot already ended"})
	case errors.Is(err, engine.ErrAlreadyRegistered):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already registered on this activity"})
	case errors.Is(err, engine.ErrInviteRedeemed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invitation already redeemed"})
	case errors.Is(err, engine.ErrInvitePending):
		return c.JSON(http.StatusConflict, echo.Map{"error": "a pending invitation already exists"})
	case errors.Is(err, engine.ErrSelfRedeem):
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot redeem your own invitation"})
	case errors.Is(err, engine.ErrInviteExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "invitation expired"})
	case errors.Is(err, engine.ErrNotParticipant):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant of this slot"})
	case errors.Is(err, engine.ErrInvalidPaymentMode):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment mode"})
	case errors.Is(err, engine.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// Join handles POST /v1/slots/:id/join.  Joining a slot the user
// already occupies returns 200 with status "already_joined"; a fresh
// seat returns 201.
func (h *BookingHandler) Join(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}

	res, err := h.Engine.Join(c.Request().Context(), userID, slotID)
	if err != nil {
		return bookingError(c, err)
	}
	code := http.StatusCreated
	if res.Status == engine.StatusAlreadyJoined {
		code = http.StatusOK
	}
	return c.JSON(code, res)
}

// Leave handles DELETE /v1/slots/:id/join.  Leaving a slot the user
// never joined is an idempotent 200 with status "not_joined".
func (h *BookingHandler) Leave(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}

	res, err := h.Engine.Leave(c.Request().Context(), userID, slotID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type issueInviteReq struct {
	ActivityID  uint64 `json:"activity_id"`
	PaymentMode string `json:"payment_mode"` // host_pays | guest_pays, defaults to host_pays
	TTLSeconds  int64  `json:"ttl_seconds"`  // 0 selects the default lifetime
}

// IssueInvite handles POST /v1/slots/:id/invites.  The caller must
// hold a seat in the slot; the returned token is single-use and
// expires after the (clamped) TTL.
func (h *BookingHandler) IssueInvite(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req issueInviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ActivityID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "activity_id required"})
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = h.InviteTTL
	}
	res, err := h.Engine.IssueInvite(c.Request().Context(), userID, req.ActivityID, slotID,
		req.PaymentMode, ttl)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// PendingInvites handles GET /v1/slots/:id/invites and lists the
// caller's live pending invitations for the slot.
func (h *BookingHandler) PendingInvites(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}

	invs, err := h.Engine.PendingInvites(c.Request().Context(), slotID, userID)
	if err != nil {
		return bookingError(c, err)
	}
	type inviteView struct {
		ID          uint64    `json:"id"`
		Token       string    `json:"token"`
		PaymentMode string    `json:"payment_mode"`
		ExpiresAt   time.Time `json:"expires_at"`
	}
	out := make([]inviteView, 0, len(invs))
	for _, inv := range invs {
		out = append(out, inviteView{ID: inv.ID, Token: inv.Token, PaymentMode: inv.PaymentMode, ExpiresAt: inv.ExpiresAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"invitations": out})
}

// CancelInvite handles DELETE /v1/invites/:id.  Only the issuer may
// cancel, and only while the invitation is still pending.
func (h *BookingHandler) CancelInvite(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	inviteID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invitation id"})
	}

	if err := h.Engine.CancelInvite(c.Request().Context(), inviteID, userID); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ValidateInvite handles GET /v1/invites/:token.  Public: invitees
// may not have an account yet.  Never mutates the token, so clients
// can poll it for a countdown.
func (h *BookingHandler) ValidateInvite(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	res, err := h.Engine.ValidateInvite(c.Request().Context(), token)
	if err != nil {
		return bookingError(c, err)
	}
	if !res.Valid {
		code := http.StatusNotFound
		switch res.Reason {
		case engine.ReasonExpired:
			code = http.StatusGone
		case engine.ReasonAlreadyRedeemed:
			code = http.StatusConflict
		}
		return c.JSON(code, res)
	}
	return c.JSON(http.StatusOK, res)
}

// RedeemInvite handles POST /v1/invites/:token/redeem.  Consuming the
// token and granting the seat is all-or-nothing; a capacity failure
// leaves the token live.
func (h *BookingHandler) RedeemInvite(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	res, err := h.Engine.RedeemInvite(c.Request().Context(), token, userID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
