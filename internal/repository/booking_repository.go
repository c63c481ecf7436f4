package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/coordenador-app/booking-api/internal/model"
)

// BookingRepo provides CRUD operations for meeting bookings.  Bookings
// reference their availability slot by value, through the
// (date, time_slot, professor_id) triple, never by a persisted pointer.
// Every listing query orders by (date, time_slot) ascending; both columns
// hold canonical zero-padded text, which is what makes the lexical
// ordering chronological.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, date, time_slot, reason, student_id, professor_id, canceled, COALESCE(cancel_reason, ''), created_at, updated_at`

func scanBooking(sc interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	err := sc.Scan(&b.ID, &b.Date, &b.TimeSlot, &b.Reason, &b.StudentID, &b.ProfessorID,
		&b.Canceled, &b.CancelReason, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Create inserts a new booking and populates the generated ID and
// timestamps on the passed record.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (date, time_slot, reason, student_id, professor_id)
			   VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.Date, b.TimeSlot, b.Reason, b.StudentID, b.ProfessorID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	stored, err := scanBooking(r.db.QueryRowContext(ctx, sel, b.ID))
	if err != nil {
		return err
	}
	*b = *stored
	return nil
}

// FindByID returns a single booking or ErrNotFound.
func (r *BookingRepo) FindByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// FindByStudent returns the student's bookings sorted by (date, time_slot).
// Canceled bookings are excluded unless includeCanceled is set.
func (r *BookingRepo) FindByStudent(ctx context.Context, studentID uint64, includeCanceled bool) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE student_id = ?`
	if !includeCanceled {
		q += ` AND canceled = 0`
	}
	q += ` ORDER BY date, time_slot`
	return r.list(ctx, q, studentID)
}

// FindDaily returns the non-canceled bookings for a date, sorted by time
// slot.  The digest job and the professor's day view both consume it.
func (r *BookingRepo) FindDaily(ctx context.Context, date string) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
			   WHERE date = ? AND canceled = 0
			   ORDER BY time_slot`
	return r.list(ctx, q, date)
}

// FindDailyForProfessor narrows FindDaily to a single professor.
func (r *BookingRepo) FindDailyForProfessor(ctx context.Context, date string, professorID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
			   WHERE date = ? AND professor_id = ? AND canceled = 0
			   ORDER BY time_slot`
	return r.list(ctx, q, date, professorID)
}

// FindNextForProfessor returns the professor's earliest non-canceled
// booking strictly in the future.  "Future" compares the stored text
// columns against today's ISO date and, for same-day rows, the current
// wall-clock start time; both comparisons are lexical over canonical
// zero-padded text.  ErrNotFound when nothing is upcoming.
func (r *BookingRepo) FindNextForProfessor(ctx context.Context, professorID uint64, today, nowTime string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
			   WHERE professor_id = ? AND canceled = 0
				 AND (date > ? OR (date = ? AND time_slot > ?))
			   ORDER BY date, time_slot
			   LIMIT 1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, professorID, today, today, nowTime))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListFutureForProfessor returns every booking (canceled included, as in
// the professor's agenda view) whose slot has not started yet, sorted by
// (date, time_slot).
func (r *BookingRepo) ListFutureForProfessor(ctx context.Context, professorID uint64, today, nowTime string) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
			   WHERE professor_id = ?
				 AND (date > ? OR (date = ? AND time_slot > ?))
			   ORDER BY date, time_slot`
	return r.list(ctx, q, professorID, today, today, nowTime)
}

// SetCanceled marks the booking canceled with the given reason and
// returns the updated record.  Cancellation is terminal; the UPDATE is
// guarded on canceled = 0 so a second cancel cannot fire side effects
// twice.  ErrNotFound when no such booking exists, ErrConflict when it
// was already canceled.
func (r *BookingRepo) SetCanceled(ctx context.Context, id uint64, reason string) (*model.Booking, error) {
	const q = `UPDATE bookings SET canceled = 1, cancel_reason = ? WHERE id = ? AND canceled = 0`
	res, err := r.db.ExecContext(ctx, q, reason, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// either the booking is gone or it is already canceled
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	return r.FindByID(ctx, id)
}

// Update applies a generic field patch.  Only whitelisted columns can be
// touched; identity and cancellation state go through their dedicated
// paths.  Returns the updated booking or ErrNotFound.
func (r *BookingRepo) Update(ctx context.Context, id uint64, fields map[string]any) (*model.Booking, error) {
	allowed := map[string]string{
		"date":      "date",
		"time_slot": "time_slot",
		"reason":    "reason",
	}
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for k, v := range fields {
		col, ok := allowed[k]
		if !ok {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}
	args = append(args, id)
	q := `UPDATE bookings SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete removes a booking permanently.  Administrative use only; the
// normal flow cancels instead of deleting.  ErrNotFound when absent.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll wipes every booking and reports how many were removed.
func (r *BookingRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
