package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpline/support-desk/internal/api/dto"
	"github.com/helpline/support-desk/internal/auth"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/service"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// TicketsHandler serves the public submission form and tracker. Errors other than
// validation and not-found are replaced with a generic retry message.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// SubmitTicket POST /api/tickets.
func (h *TicketsHandler) SubmitTicket(c *fiber.Ctx) error {
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Submit(c.UserContext(), domain.NewTicket{
		Title:            req.Title,
		ApplicationName:  req.ApplicationName,
		Description:      req.Description,
		StepsToReproduce: req.StepsToReproduce,
		Severity:         req.Severity,
		Customer: domain.Customer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
		ImageURLs: req.ImageURLs,
		VideoURLs: req.VideoURLs,
	})
	if err != nil {
		return apperrors.PublicError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SubmitTicketResponse{
		TicketNumber: ticket.TicketNumber,
		CreatedAt:    ticket.CreatedAt,
	}})
}

// LookupTicket GET /api/tickets/lookup/:number.
func (h *TicketsHandler) LookupTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Lookup(c.UserContext(), c.Params("number"))
	if err != nil {
		return apperrors.PublicError(err)
	}
	return c.JSON(fiber.Map{"data": publicView(ticket)})
}

func actorFrom(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates. A plain date used as an upper
// bound covers the whole day.
func parseTime(field, val string, endOfDay bool) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date", map[string]any{field: "must be RFC 3339 or YYYY-MM-DD"})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func publicView(ticket *domain.Ticket) dto.PublicTicketView {
	return dto.PublicTicketView{
		TicketNumber:    ticket.TicketNumber,
		Title:           ticket.Title,
		ApplicationName: ticket.ApplicationName,
		Severity:        ticket.Severity,
		Status:          ticket.Status,
		Assigned:        ticket.AssignedTo != nil,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		ResolvedAt:      ticket.ResolvedAt,
	}
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		TicketNumber:    ticket.TicketNumber,
		Title:           ticket.Title,
		ApplicationName: ticket.ApplicationName,
		Severity:        ticket.Severity,
		Status:          ticket.Status,
		CustomerName:    ticket.Customer.Name,
		AssignedTo:      ticket.AssignedTo,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		ResolvedAt:      ticket.ResolvedAt,
	}
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	ticket := detail.Ticket
	return dto.TicketDetailResponse{
		TicketSummary:    ticketSummary(ticket),
		Description:      ticket.Description,
		StepsToReproduce: ticket.StepsToReproduce,
		CustomerEmail:    ticket.Customer.Email,
		CustomerPhone:    ticket.Customer.Phone,
		ImageURLs:        nonNil(ticket.ImageURLs),
		VideoURLs:        nonNil(ticket.VideoURLs),
		AssigneeName:     detail.AssigneeName,
		Notes:            noteResponses(detail.Notes),
	}
}

func noteResponse(note *domain.Note) dto.NoteResponse {
	return dto.NoteResponse{
		ID:         note.ID,
		AuthorID:   note.AuthorID,
		AuthorName: note.AuthorName,
		Note:       note.Note,
		CreatedAt:  note.CreatedAt,
	}
}

func noteResponses(notes []domain.Note) []dto.NoteResponse {
	resp := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		resp = append(resp, noteResponse(&notes[i]))
	}
	return resp
}

func assignmentResponses(entries []domain.AssignmentEvent) []dto.AssignmentResponse {
	resp := make([]dto.AssignmentResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.AssignmentResponse{
			ID:              entry.ID,
			StaffID:         entry.StaffID,
			PreviousStaffID: entry.PreviousStaffID,
			AssignedBy:      entry.AssignedBy,
			At:              entry.At,
		})
	}
	return resp
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
