package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/realmeet/slot-booking/internal/repository"
)

// PublicHandler serves the unauthenticated browse surface: activity
// listings with live remaining places, and slot listings with group
// state.  These endpoints sit behind the response cache middleware.
type PublicHandler struct {
	Activities *repository.ActivityRepo
	Slots      *repository.SlotRepo
}

// NewPublicHandler constructs a PublicHandler and panics if any
// dependency is nil.
func NewPublicHandler(activities *repository.ActivityRepo, slots *repository.SlotRepo) *PublicHandler {
	if activities == nil || slots == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Activities: activities, Slots: slots}
}

// ListActivities handles GET /v1/activities.
func (h *PublicHandler) ListActivities(c echo.Context) error {
	list, err := h.Activities.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"activities": list})
}

// GetActivity handles GET /v1/activities/:id.
func (h *PublicHandler) GetActivity(c echo.Context) error {
	activityID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid activity id"})
	}
	detail, err := h.Activities.GetByID(c.Request().Context(), activityID)
	if err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, detail)
}

// ListSlots handles GET /v1/activities/:id/slots.
func (h *PublicHandler) ListSlots(c echo.Context) error {
	activityID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid activity id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Activities.OwnerID(ctx, activityID); err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	slots, err := h.Slots.ListByActivity(ctx, activityID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

// ListParticipants handles GET /v1/slots/:id/participants.
func (h *PublicHandler) ListParticipants(c echo.Context) error {
	slotID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	participants, err := h.Slots.Participants(c.Request().Context(), slotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"participants": participants})
}
