package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/repository"
	"github.com/helpline/support-desk/internal/ticketnumber"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

type ticketRepository struct {
	store *Store
}

func (r *ticketRepository) Create(ctx context.Context, input domain.NewTicket) (*domain.Ticket, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	input, err := repository.PrepareSubmission(input)
	if err != nil {
		return nil, err
	}
	s := r.store
	ticket := repository.NewOpenTicket(input, s.opts.Clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		number := ticketnumber.Normalize(s.opts.Numbers.Generate())
		if _, taken := s.byNumber[number]; taken {
			lastErr = apperrors.NewConflict("ticket number already in use", map[string]any{"ticket_number": number})
			continue
		}
		ticket.TicketNumber = number
		s.tickets[ticket.ID] = ticket.Clone()
		s.byNumber[number] = ticket.ID
		return ticket, nil
	}
	return nil, apperrors.NewCreateFailed(s.opts.MaxAttempts, lastErr)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return ticket.Clone(), nil
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	number = ticketnumber.Normalize(number)
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.byNumber[number]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_number": number})
	}
	return r.store.tickets[id].Clone(), nil
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}

	r.store.mu.RLock()
	result := []domain.Ticket{}
	for _, ticket := range r.store.tickets {
		if matches(ticket, filter, search) {
			result = append(result, *ticket.Clone())
		}
	}
	r.store.mu.RUnlock()

	slices.SortFunc(result, compareTickets(filter))

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *ticketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if errs := patch.Validate(); errs != nil {
		return nil, apperrors.NewValidationError("invalid ticket update", errs.Details())
	}
	return r.Mutate(ctx, id, func(_ context.Context, ticket *domain.Ticket) error {
		patch.Apply(ticket)
		ticket.Touch(r.store.opts.Clock.Now())
		return nil
	})
}

func (r *ticketRepository) Mutate(ctx context.Context, id string, fn repository.MutateFunc) (*domain.Ticket, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s := r.store
	lock := s.ticketLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.tickets[id]
	var working *domain.Ticket
	if ok {
		working = current.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}

	staged := &pending{}
	if err := fn(withPending(ctx, staged), working); err != nil {
		return nil, err
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Identity fields are immutable.
	working.ID = current.ID
	working.TicketNumber = current.TicketNumber
	working.CreatedAt = current.CreatedAt
	s.tickets[id] = working.Clone()
	for _, note := range staged.notes {
		s.notes[note.TicketID] = append(s.notes[note.TicketID], note)
	}
	for _, event := range staged.assignments {
		s.assignments[event.TicketID] = append(s.assignments[event.TicketID], event)
	}
	return working, nil
}

func matches(ticket *domain.Ticket, filter repository.TicketFilter, search string) bool {
	if filter.Unassigned {
		if ticket.AssignedTo != nil {
			return false
		}
	} else if filter.AssigneeID != nil {
		if ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssigneeID {
			return false
		}
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, ticket.Status) {
		return false
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if search != "" {
		fields := []string{ticket.TicketNumber, ticket.Customer.Name, ticket.Title, ticket.ApplicationName}
		found := false
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func compareTickets(filter repository.TicketFilter) func(a, b domain.Ticket) int {
	dir := -1
	if filter.Ascending {
		dir = 1
	}
	return func(a, b domain.Ticket) int {
		switch filter.SortBy {
		case repository.SortBySeverity:
			if c := a.Severity.Rank() - b.Severity.Rank(); c != 0 {
				return dir * c
			}
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(b.ID, a.ID)
		case repository.SortByUpdatedAt:
			if c := a.LastModified().Compare(b.LastModified()); c != 0 {
				return dir * c
			}
		default:
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return dir * c
			}
		}
		return dir * strings.Compare(a.ID, b.ID)
	}
}
