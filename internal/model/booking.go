package model

import (
	"strings"
	"time"
)

// Booking records a student's meeting reservation against an
// availability slot.  The professor is resolved from the slot at
// reservation time and stamped here; the slot itself is correlated
// by (Date, TimeSlot, ProfessorID), not by a foreign key.  A
// booking is never resurrected after cancellation.
//
// Fields:
//  ID           – primary key identifier.
//  Date         – meeting date in canonical YYYY-MM-DD form.
//  TimeSlot     – time range label, e.g. "08:00 - 09:00".
//  Reason       – free-text reason given by the student.
//  StudentID    – student who made the reservation.
//  ProfessorID  – professor owning the consumed slot.
//  Canceled     – terminal cancellation flag.
//  CancelReason – why the booking was canceled (empty while active).
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Booking struct {
	ID           uint64    `json:"id"`            // bookings.id
	Date         string    `json:"date"`          // bookings.date
	TimeSlot     string    `json:"time_slot"`     // bookings.time_slot
	Reason       string    `json:"reason"`        // bookings.reason
	StudentID    uint64    `json:"student_id"`    // bookings.student_id
	ProfessorID  uint64    `json:"professor_id"`  // bookings.professor_id
	Canceled     bool      `json:"canceled"`      // bookings.canceled
	CancelReason string    `json:"cancel_reason"` // bookings.cancel_reason
	CreatedAt    time.Time `json:"created_at"`    // bookings.created_at
	UpdatedAt    time.Time `json:"updated_at"`    // bookings.updated_at
}

// StartHour returns the start of the time slot label, e.g. "08:00"
// for "08:00 - 09:00".  Labels without a range separator are
// returned unchanged.
func (b *Booking) StartHour() string {
	if i := strings.Index(b.TimeSlot, " - "); i >= 0 {
		return b.TimeSlot[:i]
	}
	return b.TimeSlot
}

// StartsAt combines Date and the slot start hour into a time.Time in
// the given location.  Both fields are canonical zero-padded text,
// so parsing never depends on locale.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.StartHour(), loc)
}

// IsFuture reports whether the meeting starts strictly after now.
// Used for "next meeting" lookups; relies on StartsAt rather than
// lexical comparison so same-day slots compare by wall clock.
func (b *Booking) IsFuture(now time.Time) bool {
	start, err := b.StartsAt(now.Location())
	if err != nil {
		return false
	}
	return start.After(now)
}
