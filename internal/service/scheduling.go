package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coordenador-app/booking-api/internal/metrics"
	"github.com/coordenador-app/booking-api/internal/model"
	"github.com/coordenador-app/booking-api/internal/repository"
)

// AvailabilityStore is the slice of the availability repository the
// scheduling service depends on.  Acquire must be atomic: of two
// concurrent calls for the same open slot exactly one may succeed.
type AvailabilityStore interface {
	Upsert(ctx context.Context, date, timeSlot string, professorID uint64, available bool) (*model.AvailabilitySlot, error)
	FindBySlot(ctx context.Context, date, timeSlot string) (*model.AvailabilitySlot, error)
	FindAvailableByDate(ctx context.Context, date string) ([]model.AvailabilitySlot, error)
	Acquire(ctx context.Context, date, timeSlot string) (*model.AvailabilitySlot, error)
	Release(ctx context.Context, date, timeSlot string, professorID uint64) (*model.AvailabilitySlot, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// BookingStore is the slice of the booking repository the scheduling
// service depends on.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	FindByID(ctx context.Context, id uint64) (*model.Booking, error)
	FindByStudent(ctx context.Context, studentID uint64, includeCanceled bool) ([]model.Booking, error)
	FindDaily(ctx context.Context, date string) ([]model.Booking, error)
	FindDailyForProfessor(ctx context.Context, date string, professorID uint64) ([]model.Booking, error)
	FindNextForProfessor(ctx context.Context, professorID uint64, today, nowTime string) (*model.Booking, error)
	ListFutureForProfessor(ctx context.Context, professorID uint64, today, nowTime string) ([]model.Booking, error)
	SetCanceled(ctx context.Context, id uint64, reason string) (*model.Booking, error)
	Update(ctx context.Context, id uint64, fields map[string]any) (*model.Booking, error)
	Delete(ctx context.Context, id uint64) error
	DeleteAll(ctx context.Context) (int64, error)
}

// ValidationError reports missing or malformed input, including the
// Sunday rule.  It is raised before any lookup touches a store.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// dateLayouts are the accepted spellings of a booking date.  Whatever
// arrives is normalized to canonical YYYY-MM-DD before it reaches a
// store, so the lexical ordering contract holds.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006"}

// NormalizeDate parses raw with the accepted layouts and returns the
// canonical YYYY-MM-DD form together with the parsed day.
func NormalizeDate(raw string) (string, time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), t, nil
		}
	}
	return "", time.Time{}, &ValidationError{Msg: fmt.Sprintf("invalid date: %q", raw)}
}

// SchedulingService orchestrates slot lookup, reservation, release and
// conflict detection between the availability store and the booking
// ledger.  It owns the booking-side invariants; authorization stays in
// the HTTP layer, which passes an explicit requester identity down.
type SchedulingService struct {
	slots    AvailabilityStore
	bookings BookingStore
	clock    Clock
	log      *zap.Logger
}

// NewSchedulingService wires the service.  All dependencies must be
// non-nil; a nil store is a programming error, so it panics like the
// handler constructors do.
func NewSchedulingService(slots AvailabilityStore, bookings BookingStore, clock Clock, log *zap.Logger) *SchedulingService {
	if slots == nil || bookings == nil || clock == nil || log == nil {
		panic("nil dependency passed to NewSchedulingService")
	}
	return &SchedulingService{slots: slots, bookings: bookings, clock: clock, log: log}
}

// Reserve books the slot (date, timeSlot) for the student.  The
// professor is resolved from the slot record, never taken from the
// caller.  Order of checks:
//
//  1. required fields, date shape, Sunday rule  -> ValidationError
//  2. atomic acquire of an open slot            -> ErrSlotUnavailable
//  3. booking insert; a failed insert releases the slot again so no
//     partial mutation stays visible.
//
// The acquire is the compare-and-swap that gates booking creation; a
// concurrent reservation for the same slot observes ErrSlotUnavailable
// instead of creating a second active booking.
func (s *SchedulingService) Reserve(ctx context.Context, date, timeSlot, reason string, studentID uint64) (*model.Booking, error) {
	if date == "" || timeSlot == "" || reason == "" || studentID == 0 {
		return nil, &ValidationError{Msg: "date, time_slot, reason and student_id are required"}
	}
	day, parsed, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	if parsed.Weekday() == time.Sunday {
		return nil, &ValidationError{Msg: "meetings cannot be booked on Sundays"}
	}

	slot, err := s.slots.Acquire(ctx, day, timeSlot)
	if err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) {
			metrics.IncReservation("conflict")
		}
		return nil, err
	}

	b := &model.Booking{
		Date:        day,
		TimeSlot:    timeSlot,
		Reason:      reason,
		StudentID:   studentID,
		ProfessorID: slot.ProfessorID,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		// the flip already happened; reopen the slot so it is not lost
		if _, relErr := s.slots.Release(ctx, day, timeSlot, slot.ProfessorID); relErr != nil {
			s.log.Error("failed to release slot after booking insert error",
				zap.String("date", day), zap.String("time_slot", timeSlot), zap.Error(relErr))
		}
		metrics.IncReservation("error")
		return nil, err
	}
	metrics.IncReservation("created")
	s.log.Info("slot reserved",
		zap.Uint64("booking_id", b.ID), zap.Uint64("student_id", studentID),
		zap.Uint64("professor_id", slot.ProfessorID),
		zap.String("date", day), zap.String("time_slot", timeSlot))
	return b, nil
}

// Cancel marks the booking canceled and, when the requester acts as a
// student, releases the underlying slot.  A professor or admin
// cancelling on behalf of a student leaves the slot closed: that is the
// professor taking the slot off the board, not freeing it for
// rebooking.  Cancellation is terminal: a booking that is already
// canceled yields ErrConflict, never a second release of a slot someone
// else may hold by now.  The updated booking is returned for the caller
// to drive notification.
func (s *SchedulingService) Cancel(ctx context.Context, id uint64, reason string, requester model.Identity) (*model.Booking, error) {
	existing, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Canceled {
		return nil, repository.ErrConflict
	}
	b, err := s.bookings.SetCanceled(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	if requester.IsStudent() {
		if _, err := s.slots.Release(ctx, b.Date, b.TimeSlot, b.ProfessorID); err != nil {
			s.log.Error("failed to release slot on cancellation",
				zap.Uint64("booking_id", id), zap.Error(err))
			return nil, err
		}
	}
	metrics.IncCancellation(requester.IsStudent())
	s.log.Info("booking canceled",
		zap.Uint64("booking_id", id), zap.Uint64("requester_id", requester.ID),
		zap.Bool("by_student", requester.IsStudent()))
	return b, nil
}

// PublishSlot upserts an availability record, the professor's opt-in
// act that makes a slot bookable (or takes it off the board again).
func (s *SchedulingService) PublishSlot(ctx context.Context, date, timeSlot string, professorID uint64, available bool) (*model.AvailabilitySlot, error) {
	if date == "" || timeSlot == "" || professorID == 0 {
		return nil, &ValidationError{Msg: "date, time_slot and professor_id are required"}
	}
	day, _, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	return s.slots.Upsert(ctx, day, timeSlot, professorID, available)
}

// FindAvailable lists all open slots for a date.
func (s *SchedulingService) FindAvailable(ctx context.Context, date string) ([]model.AvailabilitySlot, error) {
	day, _, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	return s.slots.FindAvailableByDate(ctx, day)
}

// IsSlotAvailable reports whether (date, timeSlot) can be reserved.
// Absence of a record means "not available", not an error: publication
// is an opt-in act, so the default fails closed.
func (s *SchedulingService) IsSlotAvailable(ctx context.Context, date, timeSlot string) (bool, error) {
	day, _, err := NormalizeDate(date)
	if err != nil {
		return false, err
	}
	slot, err := s.slots.FindBySlot(ctx, day, timeSlot)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return slot.Available, nil
}

// ResolveProfessorForSlot returns the professor responsible for
// (date, timeSlot).  ErrNotFound when nobody published the slot — a
// booking against it could not be attributed to anyone.
func (s *SchedulingService) ResolveProfessorForSlot(ctx context.Context, date, timeSlot string) (uint64, error) {
	day, _, err := NormalizeDate(date)
	if err != nil {
		return 0, err
	}
	slot, err := s.slots.FindBySlot(ctx, day, timeSlot)
	if err != nil {
		return 0, err
	}
	return slot.ProfessorID, nil
}

// FindByID returns one booking.
func (s *SchedulingService) FindByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.bookings.FindByID(ctx, id)
}

// FindByStudent lists a student's bookings.
func (s *SchedulingService) FindByStudent(ctx context.Context, studentID uint64, includeCanceled bool) ([]model.Booking, error) {
	return s.bookings.FindByStudent(ctx, studentID, includeCanceled)
}

// FindDaily lists the non-canceled bookings of a day, sorted by slot.
func (s *SchedulingService) FindDaily(ctx context.Context, date string) ([]model.Booking, error) {
	day, _, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	return s.bookings.FindDaily(ctx, day)
}

// FindDailyForProfessor narrows FindDaily to one professor; the digest
// job is its main consumer.
func (s *SchedulingService) FindDailyForProfessor(ctx context.Context, date string, professorID uint64) ([]model.Booking, error) {
	day, _, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	return s.bookings.FindDailyForProfessor(ctx, day, professorID)
}

// NextForStudent returns the student's earliest active booking that
// starts after now, or ErrNotFound.  Same-day bookings compare by the
// slot's start hour against the wall clock.
func (s *SchedulingService) NextForStudent(ctx context.Context, studentID uint64) (*model.Booking, error) {
	all, err := s.bookings.FindByStudent(ctx, studentID, false)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for i := range all {
		if all[i].IsFuture(now) {
			return &all[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

// NextForProfessor returns the professor's earliest upcoming active
// booking, or ErrNotFound.
func (s *SchedulingService) NextForProfessor(ctx context.Context, professorID uint64) (*model.Booking, error) {
	now := s.clock.Now()
	return s.bookings.FindNextForProfessor(ctx, professorID, now.Format("2006-01-02"), now.Format("15:04"))
}

// FutureForProfessor lists everything still ahead on the professor's
// agenda, canceled bookings included.
func (s *SchedulingService) FutureForProfessor(ctx context.Context, professorID uint64) ([]model.Booking, error) {
	now := s.clock.Now()
	return s.bookings.ListFutureForProfessor(ctx, professorID, now.Format("2006-01-02"), now.Format("15:04"))
}

// UpdateBooking applies a generic field patch, normalizing a patched
// date so the ordering contract is never broken by an update path.
func (s *SchedulingService) UpdateBooking(ctx context.Context, id uint64, fields map[string]any) (*model.Booking, error) {
	if raw, ok := fields["date"].(string); ok {
		day, _, err := NormalizeDate(raw)
		if err != nil {
			return nil, err
		}
		fields["date"] = day
	}
	return s.bookings.Update(ctx, id, fields)
}

// DeleteBooking removes one booking permanently (admin only).
func (s *SchedulingService) DeleteBooking(ctx context.Context, id uint64) error {
	return s.bookings.Delete(ctx, id)
}

// ClearBookings wipes the booking ledger (admin only).
func (s *SchedulingService) ClearBookings(ctx context.Context) (int64, error) {
	return s.bookings.DeleteAll(ctx)
}

// ClearSlots wipes the availability store (admin only).
func (s *SchedulingService) ClearSlots(ctx context.Context) (int64, error) {
	return s.slots.DeleteAll(ctx)
}
