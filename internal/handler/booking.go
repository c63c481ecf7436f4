package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/coordenador-app/booking-api/internal/middleware"
	"github.com/coordenador-app/booking-api/internal/queue"
)

// BookingHandler exposes the meeting endpoints.  Cancellation drives
// the notification side effect: after the core has canceled (and, for
// student cancellations, released the slot), the handler publishes a
// BookingCanceledEvent.  Publishing is best-effort; a broker outage is
// logged and the caller still gets a successful response.
type BookingHandler struct {
	Scheduler Scheduler
	Log       *zap.Logger
	// Publish is swappable in tests; production wires the RabbitMQ publisher.
	Publish func(ctx context.Context, ev queue.BookingCanceledEvent) error
	// InvalidateSlots drops the cached slot listing for a date after a
	// reservation or cancellation changes it.  Nil when Redis is off.
	InvalidateSlots func(ctx context.Context, date string)
}

// NewBookingHandler constructs the handler with the RabbitMQ publisher
// and panics if a dependency is nil.
func NewBookingHandler(s Scheduler, log *zap.Logger) *BookingHandler {
	if s == nil || log == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{
		Scheduler: s,
		Log:       log,
		Publish:   queue.PublishBookingCanceled,
	}
}

func (h *BookingHandler) invalidateSlots(ctx context.Context, date string) {
	if h.InvalidateSlots != nil {
		h.InvalidateSlots(ctx, date)
	}
}

func bookingID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// Reserve handles POST /v1/meetings.  The student books an available
// slot; the owning professor is resolved from the slot record, never
// taken from the request.  An unavailable (or unpublished, or
// concurrently taken) slot yields 409 with no booking created.
func (h *BookingHandler) Reserve(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Date     string `json:"date"`
		TimeSlot string `json:"time_slot"`
		Reason   string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Scheduler.Reserve(c.Request().Context(), body.Date, body.TimeSlot, body.Reason, ident.ID)
	if err != nil {
		return fail(c, err)
	}
	h.invalidateSlots(c.Request().Context(), b.Date)
	return c.JSON(http.StatusCreated, echo.Map{"item": b})
}

// Cancel handles PATCH /v1/meetings/:id/cancel.  The owning student,
// any professor, or an admin may cancel.  The slot is released only
// for student-initiated cancellations; a professor canceling takes the
// slot off the board.  The counterparty is notified asynchronously
// after the cancellation is durable.
func (h *BookingHandler) Cancel(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := bookingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid meeting id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	existing, err := h.Scheduler.FindByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	isOwner := existing.StudentID == ident.ID
	if !isOwner && !ident.IsProfessor && !ident.IsAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	b, err := h.Scheduler.Cancel(c.Request().Context(), id, body.Reason, ident)
	if err != nil {
		return fail(c, err)
	}
	// a student cancellation reopened the slot, so the listing changed
	if ident.IsStudent() {
		h.invalidateSlots(c.Request().Context(), b.Date)
	}

	ev := queue.BookingCanceledEvent{
		EventID:             uuid.NewString(),
		BookingID:           b.ID,
		StudentID:           b.StudentID,
		ProfessorID:         b.ProfessorID,
		CanceledByID:        ident.ID,
		CanceledByProfessor: ident.IsProfessor || ident.IsAdmin,
		Date:                b.Date,
		TimeSlot:            b.TimeSlot,
		CancelReason:        b.CancelReason,
		CanceledAt:          time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.Publish(c.Request().Context(), ev); err != nil {
		// never propagated: the cancellation already happened
		h.Log.Error("failed to publish cancellation event",
			zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// Next handles GET /v1/meetings/next.  It returns the caller's next
// upcoming meeting; admins may pass student_id to look up another
// student.  404 when no future meeting exists.
func (h *BookingHandler) Next(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	studentID := ident.ID
	if raw := c.QueryParam("student_id"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid student_id"})
		}
		if n != ident.ID && !ident.IsAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		studentID = n
	}
	b, err := h.Scheduler.NextForStudent(c.Request().Context(), studentID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// NextForProfessor handles GET /v1/meetings/next-for-professor.  It
// returns the professor's earliest upcoming active meeting together
// with its parsed start timestamp.
func (h *BookingHandler) NextForProfessor(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.Scheduler.NextForProfessor(c.Request().Context(), ident.ID)
	if err != nil {
		return fail(c, err)
	}
	resp := echo.Map{"item": b}
	if starts, err := b.StartsAt(time.UTC); err == nil {
		resp["starts_at"] = starts.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

// Future handles GET /v1/meetings/future.  The professor's full
// forward agenda, canceled meetings included.
func (h *BookingHandler) Future(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Scheduler.FutureForProfessor(c.Request().Context(), ident.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Daily handles GET /v1/meetings/daily?date=.  Non-canceled meetings
// of the day, sorted by time slot; also what the digest job reads.
func (h *BookingHandler) Daily(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	items, err := h.Scheduler.FindDaily(c.Request().Context(), date)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListForStudent handles GET /v1/meetings/student/:id.  Only the
// student themselves or an admin may list; professors use the agenda
// endpoints instead.
func (h *BookingHandler) ListForStudent(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	studentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || studentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid student id"})
	}
	if studentID != ident.ID && !ident.IsAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	includeCanceled := c.QueryParam("include_canceled") == "true"
	items, err := h.Scheduler.FindByStudent(c.Request().Context(), studentID, includeCanceled)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/meetings/:id.  Visible to the owning student,
// professors and admins.
func (h *BookingHandler) Get(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := bookingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid meeting id"})
	}
	b, err := h.Scheduler.FindByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if b.StudentID != ident.ID && !ident.IsProfessor && !ident.IsAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// Update handles PATCH /v1/meetings/:id.  Generic field patch for the
// owning student, professors and admins; cancellation state is not
// patchable here.
func (h *BookingHandler) Update(c echo.Context) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := bookingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid meeting id"})
	}
	existing, err := h.Scheduler.FindByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if existing.StudentID != ident.ID && !ident.IsProfessor && !ident.IsAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var fields map[string]any
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Scheduler.UpdateBooking(c.Request().Context(), id, fields)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// Delete handles DELETE /v1/meetings/:id (admin only, enforced by route
// middleware).  Hard delete; normal flows cancel instead.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok := bookingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid meeting id"})
	}
	if err := h.Scheduler.DeleteBooking(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAll handles DELETE /v1/meetings (admin only).  Bulk wipe of the
// booking ledger.
func (h *BookingHandler) DeleteAll(c echo.Context) error {
	n, err := h.Scheduler.ClearBookings(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}
