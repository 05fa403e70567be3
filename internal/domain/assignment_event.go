package domain

import "time"

// AssignmentEvent is an append-only record of a ticket changing hands. The current
// assignee on the ticket is the projection of the latest event.
type AssignmentEvent struct {
	ID              string
	TicketID        string
	StaffID         string
	PreviousStaffID *string
	AssignedBy      string
	At              time.Time
}
