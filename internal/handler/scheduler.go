package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coordenador-app/booking-api/internal/model"
	"github.com/coordenador-app/booking-api/internal/repository"
	"github.com/coordenador-app/booking-api/internal/service"
)

// Scheduler is the slice of the scheduling service the HTTP layer
// depends on.  Depending on the interface rather than the concrete
// service keeps handlers testable without a database.
type Scheduler interface {
	Reserve(ctx context.Context, date, timeSlot, reason string, studentID uint64) (*model.Booking, error)
	Cancel(ctx context.Context, id uint64, reason string, requester model.Identity) (*model.Booking, error)
	PublishSlot(ctx context.Context, date, timeSlot string, professorID uint64, available bool) (*model.AvailabilitySlot, error)
	FindAvailable(ctx context.Context, date string) ([]model.AvailabilitySlot, error)
	IsSlotAvailable(ctx context.Context, date, timeSlot string) (bool, error)
	ResolveProfessorForSlot(ctx context.Context, date, timeSlot string) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*model.Booking, error)
	FindByStudent(ctx context.Context, studentID uint64, includeCanceled bool) ([]model.Booking, error)
	FindDaily(ctx context.Context, date string) ([]model.Booking, error)
	NextForStudent(ctx context.Context, studentID uint64) (*model.Booking, error)
	NextForProfessor(ctx context.Context, professorID uint64) (*model.Booking, error)
	FutureForProfessor(ctx context.Context, professorID uint64) ([]model.Booking, error)
	UpdateBooking(ctx context.Context, id uint64, fields map[string]any) (*model.Booking, error)
	DeleteBooking(ctx context.Context, id uint64) error
	ClearBookings(ctx context.Context) (int64, error)
	ClearSlots(ctx context.Context) (int64, error)
}

// fail maps scheduling errors onto HTTP responses: validation 400,
// availability conflicts 409, missing records 404, ownership 403,
// anything else 500.
func fail(c echo.Context, err error) error {
	switch {
	case service.IsValidation(err):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrSlotUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "time slot unavailable"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
