package model

import "time"

// User represents an application user record as stored in the
// `users` table.  Students and professors share the table; the
// Professor and Admin flags drive authorization decisions made by
// the HTTP layer.  Account management (registration, passwords,
// token issuance) lives in a separate identity service, so no
// credential columns appear here.
//
// Fields:
//  ID        – primary key identifier of the user.
//  Name      – display name used in digest and notification mail.
//  Email     – address notifications are sent to.
//  Professor – true when the user is a professor.
//  Admin     – true when the user has administrative rights.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type User struct {
	ID        uint64    `json:"id"`        // users.id
	Name      string    `json:"name"`      // users.name
	Email     string    `json:"email"`     // users.email
	Professor bool      `json:"professor"` // users.professor
	Admin     bool      `json:"admin"`     // users.admin
	CreatedAt time.Time `json:"-"`         // users.created_at
	UpdatedAt time.Time `json:"-"`         // users.updated_at
}

// Identity is the resolved caller attached to each request by the
// JWT middleware.  The core trusts these values and does not
// re-authenticate.
type Identity struct {
	ID          uint64 // subject claim, users.id
	IsProfessor bool   // professor claim
	IsAdmin     bool   // admin claim
}

// IsStudent reports whether the caller acts as a student.  Slot
// release on cancellation hinges on this: only a student-initiated
// cancel reopens the slot.
func (i Identity) IsStudent() bool {
	return !i.IsProfessor && !i.IsAdmin
}
