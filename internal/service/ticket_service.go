package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/helpline/support-desk/internal/clock"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/events"
	"github.com/helpline/support-desk/internal/repository"
	"github.com/helpline/support-desk/internal/ticketnumber"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// MaxListLimit caps a single page of staff ticket listings.
const MaxListLimit = 200

// TicketService coordinates customer submission, lookup and staff ticket views.
type TicketService struct {
	tickets     repository.TicketRepository
	notes       repository.NoteRepository
	staff       repository.StaffRepository
	assignments repository.AssignmentRepository
	logger      *zap.Logger
	events      eventPublisher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	NoteRepo       repository.NoteRepository
	StaffRepo      repository.StaffRepository
	AssignmentRepo repository.AssignmentRepository
	Dispatcher     events.Dispatcher
	Clock          clock.Clock
	Logger         *zap.Logger
}

// TicketDetail is the staff view of one ticket.
type TicketDetail struct {
	Ticket *domain.Ticket
	// AssigneeName is nil when unassigned and domain.UnknownStaffName when the assignee
	// no longer exists.
	AssigneeName *string
	Notes        []domain.Note
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := defaultLogger(deps.Logger)
	return &TicketService{
		tickets:     deps.TicketRepo,
		notes:       deps.NoteRepo,
		staff:       deps.StaffRepo,
		assignments: deps.AssignmentRepo,
		logger:      logger,
		events:      newEventPublisher(deps.Dispatcher, deps.Clock, logger),
	}
}

// Submit stores a customer report and returns the new ticket.
func (s *TicketService) Submit(ctx context.Context, input domain.NewTicket) (*domain.Ticket, error) {
	ticket, err := s.tickets.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ticket submitted",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("severity", string(ticket.Severity)))
	s.events.publish(ctx, events.EventTicketCreated, ticket, events.Actor{}, events.TicketCreatedPayload{
		Severity:        ticket.Severity,
		ApplicationName: ticket.ApplicationName,
		Title:           ticket.Title,
	})
	return ticket, nil
}

// Lookup finds a ticket by its human-facing number, ignoring case and surrounding space.
func (s *TicketService) Lookup(ctx context.Context, number string) (*domain.Ticket, error) {
	number = ticketnumber.Normalize(number)
	if number == "" {
		return nil, apperrors.NewValidationError("ticket number is required", map[string]any{"ticket_number": "is required"})
	}
	// Malformed numbers cannot match a stored ticket.
	if !ticketnumber.Valid(number) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_number": number})
	}
	return s.tickets.GetByNumber(ctx, number)
}

// List returns tickets matching filter for staff.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if filter.SortBy == "" {
		filter.SortBy = repository.SortByCreatedAt
	}
	details := map[string]any{}
	if !filter.SortBy.Valid() {
		details["sort"] = "must be one of created_at, updated_at, severity"
	}
	for _, status := range filter.Statuses {
		if !status.Valid() {
			details["status"] = "unknown status " + string(status)
		}
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		details["range"] = "from must not be after to"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket filter", details)
	}
	if filter.Limit <= 0 || filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.tickets.List(ctx, filter)
}

// Get returns the ticket with its notes and the assignee's display name.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*TicketDetail, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	detail := &TicketDetail{Ticket: ticket, Notes: notes}
	if ticket.AssignedTo != nil {
		name, err := s.staffName(ctx, *ticket.AssignedTo)
		if err != nil {
			return nil, err
		}
		detail.AssigneeName = &name
	}
	return detail, nil
}

// Assignments returns the ticket's assignment history oldest first.
func (s *TicketService) Assignments(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.AssignmentEvent, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.assignments.ListByTicket(ctx, ticketID)
}

// UpdateDetails edits ticket content. Only administrators may rewrite a customer report.
func (s *TicketService) UpdateDetails(ctx context.Context, actor domain.Actor, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	ticket, err := s.tickets.Update(ctx, ticketID, patch)
	if err != nil {
		return nil, err
	}
	fields := patchFields(patch)
	s.logger.Info("ticket details updated",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.Strings("fields", fields),
		zap.String("actor_id", actor.ID))
	s.events.publish(ctx, events.EventTicketUpdated, ticket, events.ActorFrom(actor), events.TicketUpdatedPayload{Fields: fields})
	return ticket, nil
}

func (s *TicketService) staffName(ctx context.Context, staffID string) (string, error) {
	member, err := s.staff.GetByID(ctx, staffID)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return domain.UnknownStaffName, nil
	}
	if err != nil {
		return "", err
	}
	return member.Name, nil
}

func patchFields(patch domain.TicketPatch) []string {
	var fields []string
	if patch.Title != nil {
		fields = append(fields, "title")
	}
	if patch.ApplicationName != nil {
		fields = append(fields, "application_name")
	}
	if patch.Description != nil {
		fields = append(fields, "description")
	}
	if patch.StepsToReproduce != nil {
		fields = append(fields, "steps_to_reproduce")
	}
	if patch.Severity != nil {
		fields = append(fields, "severity")
	}
	return fields
}

// ParseStatuses splits a comma separated status list.
func ParseStatuses(raw string) []domain.TicketStatus {
	var out []domain.TicketStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, domain.TicketStatus(part))
		}
	}
	return out
}
