package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/helpline/support-desk/internal/domain"
)

type noteRepository struct {
	store *Store
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tickets[note.TicketID]; !ok {
		return missingReference("ticket_notes_ticket_id_fkey")
	}
	stored := *note
	stored.AuthorName = ""
	if p := pendingFrom(ctx); p != nil {
		p.notes = append(p.notes, stored)
		return nil
	}
	r.store.notes[note.TicketID] = append(r.store.notes[note.TicketID], stored)
	return nil
}

// ListByTicket returns notes in insertion order, which is created_at order because every
// note is stamped while its ticket is locked.
func (r *noteRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Note, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	stored := r.store.notes[ticketID]
	result := make([]domain.Note, 0, len(stored))
	for _, note := range stored {
		note.AuthorName = domain.UnknownStaffName
		if author, ok := r.store.staff[note.AuthorID]; ok {
			note.AuthorName = author.Name
		}
		result = append(result, note)
	}
	return result, nil
}

type assignmentRepository struct {
	store *Store
}

func (r *assignmentRepository) Create(ctx context.Context, event *domain.AssignmentEvent) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tickets[event.TicketID]; !ok {
		return missingReference("assignment_events_ticket_id_fkey")
	}
	if p := pendingFrom(ctx); p != nil {
		p.assignments = append(p.assignments, *event)
		return nil
	}
	r.store.assignments[event.TicketID] = append(r.store.assignments[event.TicketID], *event)
	return nil
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentEvent, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	result := make([]domain.AssignmentEvent, 0, len(r.store.assignments[ticketID]))
	for _, event := range r.store.assignments[ticketID] {
		cp := event
		if event.PreviousStaffID != nil {
			prev := *event.PreviousStaffID
			cp.PreviousStaffID = &prev
		}
		result = append(result, cp)
	}
	return result, nil
}
