package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/realmeet/slot-booking/internal/repository"
)

// OwnerHandler bundles repositories for business owners to manage
// their activities and slots.  Role enforcement (BUSINESS) happens in
// middleware; ownership of individual activities is checked here.
type OwnerHandler struct {
	Activities *repository.ActivityRepo
	Slots      *repository.SlotRepo
}

// NewOwnerHandler constructs an OwnerHandler and panics if any
// dependency is nil.
func NewOwnerHandler(activities *repository.ActivityRepo, slots *repository.SlotRepo) *OwnerHandler {
	if activities == nil || slots == nil {
		panic("nil repository passed to NewOwnerHandler")
	}
	return &OwnerHandler{Activities: activities, Slots: slots}
}

type createActivityReq struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	ImageURL        string `json:"image_url"`
	Location        string `json:"location"`
	PriceCents      uint32 `json:"price_cents"`
	MaxParticipants uint32 `json:"max_participants"`
}

// CreateActivity handles POST /v1/owner/activities.
func (h *OwnerHandler) CreateActivity(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createActivityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.MaxParticipants == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_participants must be positive"})
	}

	rec := &repository.ActivityRecord{
		OwnerID:         userID,
		Name:            req.Name,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		Location:        req.Location,
		PriceCents:      req.PriceCents,
		MaxParticipants: req.MaxParticipants,
	}
	if err := h.Activities.Create(c.Request().Context(), rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create activity failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": rec.ID})
}

// ListMyActivities handles GET /v1/owner/activities.
func (h *OwnerHandler) ListMyActivities(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Activities.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"activities": list})
}

type createSlotReq struct {
	StartsAt    time.Time `json:"starts_at"`
	DurationMin uint32    `json:"duration_min"`
}

// CreateSlot handles POST /v1/owner/activities/:id/slots.  Only the
// activity's owner may add slots.
func (h *OwnerHandler) CreateSlot(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	activityID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid activity id"})
	}
	var req createSlotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at required"})
	}

	ctx := c.Request().Context()
	if err := h.Activities.EnsureOwner(ctx, activityID, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrActivityNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	rec := &repository.SlotRecord{
		ActivityID:  activityID,
		StartsAt:    req.StartsAt.UTC(),
		DurationMin: req.DurationMin,
	}
	if err := h.Slots.Create(ctx, rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create slot failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": rec.ID})
}
