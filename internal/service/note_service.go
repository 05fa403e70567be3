package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/helpline/support-desk/internal/clock"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/events"
	"github.com/helpline/support-desk/internal/repository"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

const (
	// MaxNoteLength bounds a single note in characters.
	MaxNoteLength = 5000
	previewLength = 80
)

// NoteService manages the append-only staff note ledger.
type NoteService struct {
	tickets repository.TicketRepository
	notes   repository.NoteRepository
	staff   repository.StaffRepository
	clock   clock.Clock
	logger  *zap.Logger
	events  eventPublisher
}

// NoteDependencies bundles repositories and collaborators.
type NoteDependencies struct {
	TicketRepo repository.TicketRepository
	NoteRepo   repository.NoteRepository
	StaffRepo  repository.StaffRepository
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewNoteService creates the service.
func NewNoteService(deps NoteDependencies) *NoteService {
	clk := defaultClock(deps.Clock)
	logger := defaultLogger(deps.Logger)
	return &NoteService{
		tickets: deps.TicketRepo,
		notes:   deps.NoteRepo,
		staff:   deps.StaffRepo,
		clock:   clk,
		logger:  logger,
		events:  newEventPublisher(deps.Dispatcher, clk, logger),
	}
}

// AddNote appends a note authored by actor and refreshes the ticket's updated_at in the
// same transaction.
func (s *NoteService) AddNote(ctx context.Context, actor domain.Actor, ticketID, text string) (*domain.Note, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("note must not be empty", map[string]any{"note": "must not be empty"})
	}
	if utf8.RuneCountInString(text) > MaxNoteLength {
		return nil, apperrors.NewValidationError("note is too long", map[string]any{"note": "must be at most 5000 characters"})
	}

	author, err := s.staff.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !author.Active() {
		return nil, apperrors.NewForbidden("inactive staff cannot add notes")
	}

	note := &domain.Note{TicketID: ticketID, AuthorID: author.ID, Note: text}
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(txCtx context.Context, ticket *domain.Ticket) error {
		note.CreatedAt = ticket.Touch(s.clock.Now())
		return s.notes.Create(txCtx, note)
	})
	if err != nil {
		return nil, err
	}
	note.AuthorName = author.Name

	s.logger.Info("ticket note added",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("note_id", note.ID),
		zap.String("actor_id", actor.ID))
	s.events.publish(ctx, events.EventTicketNoteAdded, ticket, events.ActorFrom(actor), events.TicketNoteAddedPayload{
		NoteID:      note.ID,
		AuthorID:    note.AuthorID,
		BodyPreview: preview(text),
	})
	return note, nil
}

// ListNotes returns the ticket's notes oldest first.
func (s *NoteService) ListNotes(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Note, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.notes.ListByTicket(ctx, ticketID)
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "…"
}
