// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// the scheduling service and handlers to distinguish between
// different failure scenarios. For example, ErrSlotUnavailable
// signals that a reservation targeted a closed or unpublished slot
// (or lost the race for it), while ErrConflict covers duplicate-key
// inserts on the composite (date, time_slot, professor_id)
// uniqueness constraint.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a booking, slot or user does not
// exist. Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot be
// performed because of conflicting state, such as a concurrent
// duplicate-key insert on the slot uniqueness constraint. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSlotUnavailable is returned when a reservation targets a slot
// that is absent, already reserved, or was flipped by a concurrent
// request between lookup and update. No partial mutation remains
// visible when it is returned.
var ErrSlotUnavailable = errors.New("slot unavailable")

// isDuplicateKey reports whether err is a MySQL duplicate-entry
// violation (error 1062) on a unique constraint.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
