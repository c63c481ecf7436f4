package model

import "time"

// AvailabilitySlot is one unit of bookable time published by a
// professor.  A row exists only after the professor has published
// the slot or a booking has touched it; an absent row means the
// slot is not available (publication is opt-in).  The composite
// key (Date, TimeSlot, ProfessorID) is unique in the database.
//
// Fields:
//  ID          – primary key identifier.
//  Date        – calendar date in canonical YYYY-MM-DD form.
//  TimeSlot    – zero-padded time range label, e.g. "08:00 - 09:00".
//  ProfessorID – professor who owns this slot.
//  Available   – whether the slot can currently be reserved.
//  CreatedAt   – timestamp when the row was inserted.
//  UpdatedAt   – timestamp of the last flip.
type AvailabilitySlot struct {
	ID          uint64    `json:"id"`           // availability_slots.id
	Date        string    `json:"date"`         // availability_slots.date
	TimeSlot    string    `json:"time_slot"`    // availability_slots.time_slot
	ProfessorID uint64    `json:"professor_id"` // availability_slots.professor_id
	Available   bool      `json:"available"`    // availability_slots.available
	CreatedAt   time.Time `json:"-"`            // availability_slots.created_at
	UpdatedAt   time.Time `json:"-"`            // availability_slots.updated_at
}
