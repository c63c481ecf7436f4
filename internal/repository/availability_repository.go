package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coordenador-app/booking-api/internal/model"
)

// AvailabilityRepo provides persistence for availability slots.  One row
// exists per (date, time_slot, professor_id); the composite uniqueness
// constraint in the schema enforces it.  Absence of a row means the slot
// was never published and is therefore not available.  All dates are
// canonical YYYY-MM-DD text and all slot labels are zero-padded, so
// lexical ordering matches chronological ordering.
type AvailabilityRepo struct {
	db *sql.DB
}

// NewAvailabilityRepo returns a new AvailabilityRepo bound to the given database.
func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span the availability flip and the booking insert.
func (r *AvailabilityRepo) DB() *sql.DB { return r.db }

const slotColumns = `id, date, time_slot, professor_id, available, created_at, updated_at`

func scanSlot(row *sql.Row) (*model.AvailabilitySlot, error) {
	var s model.AvailabilitySlot
	err := row.Scan(&s.ID, &s.Date, &s.TimeSlot, &s.ProfessorID, &s.Available, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert creates the slot row if absent, otherwise updates only the
// available flag.  Identity columns are never rewritten on update.  It
// returns the stored row.  A duplicate-key violation raised by a
// concurrent insert on the same composite key is surfaced as ErrConflict.
func (r *AvailabilityRepo) Upsert(ctx context.Context, date, timeSlot string, professorID uint64, available bool) (*model.AvailabilitySlot, error) {
	const q = `INSERT INTO availability_slots (date, time_slot, professor_id, available)
			   VALUES (?, ?, ?, ?)
			   ON DUPLICATE KEY UPDATE available = VALUES(available)`
	if _, err := r.db.ExecContext(ctx, q, date, timeSlot, professorID, available); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	const sel = `SELECT ` + slotColumns + ` FROM availability_slots
				 WHERE date = ? AND time_slot = ? AND professor_id = ?`
	return scanSlot(r.db.QueryRowContext(ctx, sel, date, timeSlot, professorID))
}

// FindBySlot returns the slot record for (date, timeSlot), whichever
// professor published it.  ErrNotFound is returned when the slot was
// never published.
func (r *AvailabilityRepo) FindBySlot(ctx context.Context, date, timeSlot string) (*model.AvailabilitySlot, error) {
	const q = `SELECT ` + slotColumns + ` FROM availability_slots
			   WHERE date = ? AND time_slot = ?
			   ORDER BY professor_id LIMIT 1`
	s, err := scanSlot(r.db.QueryRowContext(ctx, q, date, timeSlot))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// FindAvailableByDate returns all slots for the date with available=1,
// ordered by time slot for the student-facing picker.
func (r *AvailabilityRepo) FindAvailableByDate(ctx context.Context, date string) ([]model.AvailabilitySlot, error) {
	const q = `SELECT ` + slotColumns + ` FROM availability_slots
			   WHERE date = ? AND available = 1
			   ORDER BY time_slot, professor_id`
	rows, err := r.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.AvailabilitySlot, 0)
	for rows.Next() {
		var s model.AvailabilitySlot
		if err := rows.Scan(&s.ID, &s.Date, &s.TimeSlot, &s.ProfessorID, &s.Available, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// Acquire atomically flips an available slot for (date, timeSlot) to
// unavailable and returns it.  The row is locked inside a transaction and
// the flip is guarded by "AND available = 1", so of two concurrent
// reservation attempts exactly one succeeds; the loser observes
// ErrSlotUnavailable.  An unpublished slot also yields
// ErrSlotUnavailable: absence of a record means not available.
func (r *AvailabilityRepo) Acquire(ctx context.Context, date, timeSlot string) (*model.AvailabilitySlot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT ` + slotColumns + ` FROM availability_slots
				 WHERE date = ? AND time_slot = ? AND available = 1
				 ORDER BY professor_id LIMIT 1
				 FOR UPDATE`
	s, err := scanSlot(tx.QueryRowContext(ctx, sel, date, timeSlot))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotUnavailable
	}
	if err != nil {
		return nil, err
	}

	const upd = `UPDATE availability_slots SET available = 0 WHERE id = ? AND available = 1`
	res, err := tx.ExecContext(ctx, upd, s.ID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// lost the race between SELECT and UPDATE
		return nil, ErrSlotUnavailable
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	s.Available = false
	return s, nil
}

// Release reopens the slot owned by professorID for (date, timeSlot).
// The upsert path keeps the invariant that releasing a slot whose row
// was bulk-cleaned in the meantime recreates it as available.
func (r *AvailabilityRepo) Release(ctx context.Context, date, timeSlot string, professorID uint64) (*model.AvailabilitySlot, error) {
	return r.Upsert(ctx, date, timeSlot, professorID, true)
}

// DeleteAll wipes every slot record.  Administrative bulk reset only;
// the booking flow never calls it.
func (r *AvailabilityRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability_slots`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
