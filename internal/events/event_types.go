package events

import (
	"time"

	"github.com/helpline/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketNoteAdded     EventType = "ticket_note_added"
	EventTicketUpdated       EventType = "ticket_updated"
)

// AllEventTypes lists every type, for subscribers interested in the whole stream.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketStatusChanged,
	EventTicketNoteAdded,
	EventTicketUpdated,
}

// Actor encapsulates actor metadata for an event. StaffID is empty for customer submissions.
type Actor struct {
	StaffID string           `json:"staff_id,omitempty"`
	Role    domain.StaffRole `json:"role,omitempty"`
}

// ActorFrom converts an authenticated actor.
func ActorFrom(actor domain.Actor) Actor {
	return Actor{StaffID: actor.ID, Role: actor.Role}
}

// Event represents a domain event emitted by services after a change commits.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketID     string      `json:"ticket_id"`
	TicketNumber string      `json:"ticket_number"`
	Actor        Actor       `json:"actor"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Severity        domain.Severity `json:"severity"`
	ApplicationName string          `json:"application_name"`
	Title           string          `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeStaffID string              `json:"assignee_staff_id"`
	PreviousStaffID *string             `json:"previous_staff_id,omitempty"`
	Status          domain.TicketStatus `json:"status"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	NoteID      string `json:"note_id"`
	AuthorID    string `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}
