package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coordenador-app/booking-api/internal/middleware"
)

// AvailabilityHandler exposes the slot-facing endpoints: the student
// slot picker, the fail-closed availability probe and the professor's
// publish operation.  Authorization (professor/admin roles) is enforced
// by middleware on the routes; the handler only needs the caller
// identity to stamp published slots.
type AvailabilityHandler struct {
	Scheduler Scheduler
	// InvalidateSlots drops the cached slot listing for a date after a
	// publish changes it.  Nil when Redis is off.
	InvalidateSlots func(ctx context.Context, date string)
}

// NewAvailabilityHandler constructs the handler and panics if the
// scheduler is nil.
func NewAvailabilityHandler(s Scheduler) *AvailabilityHandler {
	if s == nil {
		panic("nil scheduler passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Scheduler: s}
}

// ListAvailable handles GET /v1/slots?date=YYYY-MM-DD.  It returns all
// slots for the date that can currently be reserved.  The route sits
// behind the Redis response cache: the answer changes with every
// reservation, so the TTL is short.
func (h *AvailabilityHandler) ListAvailable(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	slots, err := h.Scheduler.FindAvailable(c.Request().Context(), date)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": slots})
}

// CheckSlot handles GET /v1/slots/check?date=&time_slot=.  A slot that
// was never published reports available=false with a 200, not an
// error: absence of a record means "not available".
func (h *AvailabilityHandler) CheckSlot(c echo.Context) error {
	date := c.QueryParam("date")
	timeSlot := c.QueryParam("time_slot")
	if date == "" || timeSlot == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date and time_slot are required"})
	}
	available, err := h.Scheduler.IsSlotAvailable(c.Request().Context(), date, timeSlot)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":      date,
		"time_slot": timeSlot,
		"available": available,
	})
}

// PublishSlot handles POST /v1/slots.  A professor publishes (or
// withdraws) one of their own slots; an admin may pass an explicit
// professor_id to act on another's behalf.
func (h *AvailabilityHandler) PublishSlot(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Date        string `json:"date"`
		TimeSlot    string `json:"time_slot"`
		ProfessorID uint64 `json:"professor_id"`
		Available   *bool  `json:"available"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	professorID := ident.ID
	if body.ProfessorID != 0 && ident.IsAdmin {
		professorID = body.ProfessorID
	}
	available := true
	if body.Available != nil {
		available = *body.Available
	}
	slot, err := h.Scheduler.PublishSlot(c.Request().Context(), body.Date, body.TimeSlot, professorID, available)
	if err != nil {
		return fail(c, err)
	}
	if h.InvalidateSlots != nil {
		h.InvalidateSlots(c.Request().Context(), slot.Date)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": slot})
}

// ClearSlots handles DELETE /v1/slots.  Administrative bulk reset of
// the availability store; every slot returns to the unpublished state.
func (h *AvailabilityHandler) ClearSlots(c echo.Context) error {
	n, err := h.Scheduler.ClearSlots(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}
