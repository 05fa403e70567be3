package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpline/support-desk/internal/api/dto"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/repository"
	"github.com/helpline/support-desk/internal/service"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

const defaultPageSize = 50

// StaffTicketsHandler handles the staff dashboard ticket endpoints.
type StaffTicketsHandler struct {
	tickets   *service.TicketService
	lifecycle *service.LifecycleService
	notes     *service.NoteService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(tickets *service.TicketService, lifecycle *service.LifecycleService, notes *service.NoteService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: tickets, lifecycle: lifecycle, notes: notes}
}

// ListTickets GET /api/staff/tickets.
func (h *StaffTicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter, page, pageSize, err := parseStaffTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Page: page, PageSize: pageSize, Count: len(items)},
	})
}

// GetTicket GET /api/staff/tickets/:id.
func (h *StaffTicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	detail, err := h.tickets.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// UpdateTicket PATCH /api/staff/tickets/:id.
func (h *StaffTicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdateDetails(c.UserContext(), actor, c.Params("id"), domain.TicketPatch{
		Title:            req.Title,
		ApplicationName:  req.ApplicationName,
		Description:      req.Description,
		StepsToReproduce: req.StepsToReproduce,
		Severity:         req.Severity,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AssignTicket POST /api/staff/tickets/:id/assign.
func (h *StaffTicketsHandler) AssignTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.Assign(c.UserContext(), actor, c.Params("id"), req.StaffID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// UpdateStatus POST /api/staff/tickets/:id/status.
func (h *StaffTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.SetStatus(c.UserContext(), actor, c.Params("id"), domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddNote POST /api/staff/tickets/:id/notes.
func (h *StaffTicketsHandler) AddNote(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AddNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	note, err := h.notes.AddNote(c.UserContext(), actor, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": noteResponse(note)})
}

// ListNotes GET /api/staff/tickets/:id/notes.
func (h *StaffTicketsHandler) ListNotes(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	notes, err := h.notes.ListNotes(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": noteResponses(notes)})
}

// ListAssignments GET /api/staff/tickets/:id/assignments.
func (h *StaffTicketsHandler) ListAssignments(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	history, err := h.tickets.Assignments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponses(history)})
}

func parseStaffTicketFilter(c *fiber.Ctx) (repository.TicketFilter, int, int, error) {
	filter := repository.TicketFilter{
		Statuses:   service.ParseStatuses(c.Query("status")),
		SearchTerm: optionalQuery(c, "search"),
		SortBy:     repository.SortField(c.Query("sort", string(repository.SortByCreatedAt))),
		Ascending:  c.Query("order") == "asc",
	}
	switch assignee := c.Query("assignee"); assignee {
	case "":
	case "none":
		filter.Unassigned = true
	default:
		filter.AssigneeID = &assignee
	}

	var err error
	if filter.CreatedFrom, err = parseTime("created_from", c.Query("created_from"), false); err != nil {
		return filter, 0, 0, err
	}
	if filter.CreatedTo, err = parseTime("created_to", c.Query("created_to"), true); err != nil {
		return filter, 0, 0, err
	}

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > service.MaxListLimit {
		pageSize = service.MaxListLimit
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, page, pageSize, nil
}
