package queue

// BookingCanceledEvent is published after a booking is marked canceled
// (and, for student-initiated cancellations, after the slot release).
// It carries enough to route and compose the notification mail without
// re-reading the booking, so the consumer only resolves user records.
type BookingCanceledEvent struct {
	EventID             string `json:"event_id"`
	BookingID           uint64 `json:"booking_id"`
	StudentID           uint64 `json:"student_id"`
	ProfessorID         uint64 `json:"professor_id"`
	CanceledByID        uint64 `json:"canceled_by_id"`
	CanceledByProfessor bool   `json:"canceled_by_professor"`
	Date                string `json:"date"`
	TimeSlot            string `json:"time_slot"`
	CancelReason        string `json:"cancel_reason"`
	CanceledAt          string `json:"canceled_at"`
}
