package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/helpline/support-desk/internal/clock"
	"github.com/helpline/support-desk/internal/config"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/events"
	"github.com/helpline/support-desk/internal/repository"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// LifecyclePolicy selects the configurable lifecycle rules.
type LifecyclePolicy struct {
	// Transitions is config.TransitionPermissive (any status to any status) or
	// config.TransitionStrict (closed and cancelled tickets cannot change status).
	Transitions string
	// ResolvedAt is config.ResolvedAtFirst (stamp only once) or config.ResolvedAtLatest
	// (restamp on every resolution).
	ResolvedAt string
}

// PolicyFromConfig extracts the lifecycle policy from ticket settings.
func PolicyFromConfig(cfg config.TicketConfig) LifecyclePolicy {
	return LifecyclePolicy{Transitions: cfg.TransitionPolicy, ResolvedAt: cfg.ResolvedAtPolicy}
}

// LifecycleService owns assignment and status transitions.
type LifecycleService struct {
	tickets     repository.TicketRepository
	staff       repository.StaffRepository
	assignments repository.AssignmentRepository
	policy      LifecyclePolicy
	clock       clock.Clock
	logger      *zap.Logger
	events      eventPublisher
}

// LifecycleDependencies bundles repositories and collaborators.
type LifecycleDependencies struct {
	TicketRepo     repository.TicketRepository
	StaffRepo      repository.StaffRepository
	AssignmentRepo repository.AssignmentRepository
	Dispatcher     events.Dispatcher
	Policy         LifecyclePolicy
	Clock          clock.Clock
	Logger         *zap.Logger
}

// NewLifecycleService creates the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	clk := defaultClock(deps.Clock)
	logger := defaultLogger(deps.Logger)
	return &LifecycleService{
		tickets:     deps.TicketRepo,
		staff:       deps.StaffRepo,
		assignments: deps.AssignmentRepo,
		policy:      deps.Policy,
		clock:       clk,
		logger:      logger,
		events:      newEventPublisher(deps.Dispatcher, clk, logger),
	}
}

// Assign hands the ticket to staffID. Open tickets move to assigned; tickets already in
// progress or resolved keep their status. Closed and cancelled tickets cannot be assigned.
func (s *LifecycleService) Assign(ctx context.Context, actor domain.Actor, ticketID, staffID string) (*domain.Ticket, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return nil, apperrors.NewValidationError("staff_id is required", map[string]any{"staff_id": "is required"})
	}

	assignee, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !assignee.Assignable() {
		return nil, apperrors.NewForbidden("tickets can only be assigned to active staff members")
	}

	var previous *string
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(txCtx context.Context, ticket *domain.Ticket) error {
		if ticket.Status.IsFinal() {
			return apperrors.NewInvalidTransition("ticket is no longer assignable", map[string]any{"status": ticket.Status})
		}
		// Re-read under the ticket transaction; the staff row may have changed since.
		current, err := s.staff.GetByID(txCtx, staffID)
		if err != nil {
			return err
		}
		if !current.Assignable() {
			return apperrors.NewForbidden("tickets can only be assigned to active staff members")
		}
		previous = ticket.AssignedTo
		ticket.AssignedTo = &assignee.ID
		if ticket.Status == domain.TicketStatusOpen {
			ticket.Status = domain.TicketStatusAssigned
		}
		at := ticket.Touch(s.clock.Now())
		return s.assignments.Create(txCtx, &domain.AssignmentEvent{
			TicketID:        ticket.ID,
			StaffID:         assignee.ID,
			PreviousStaffID: previous,
			AssignedBy:      actor.ID,
			At:              at,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("assignee_id", assignee.ID),
		zap.String("actor_id", actor.ID))
	s.events.publish(ctx, events.EventTicketAssigned, ticket, events.ActorFrom(actor), events.TicketAssignedPayload{
		AssigneeStaffID: assignee.ID,
		PreviousStaffID: previous,
		Status:          ticket.Status,
	})
	return ticket, nil
}

// SetStatus moves the ticket to status. Entering resolved or closed stamps resolved_at;
// leaving those states keeps it.
func (s *LifecycleService) SetStatus(ctx context.Context, actor domain.Actor, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	status = domain.TicketStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, apperrors.NewInvalidTransition("unknown ticket status", map[string]any{
			"status":  status,
			"allowed": domain.TicketStatuses,
		})
	}

	var previous domain.TicketStatus
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(_ context.Context, ticket *domain.Ticket) error {
		previous = ticket.Status
		if s.policy.Transitions == config.TransitionStrict && previous.IsFinal() && status != previous {
			return apperrors.NewInvalidTransition("ticket is closed", map[string]any{"from": previous, "to": status})
		}
		ticket.Status = status
		now := ticket.Touch(s.clock.Now())
		if status.IsResolution() && (ticket.ResolvedAt == nil || s.policy.ResolvedAt == config.ResolvedAtLatest) {
			ticket.ResolvedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
		zap.String("actor_id", actor.ID))
	s.events.publish(ctx, events.EventTicketStatusChanged, ticket, events.ActorFrom(actor), events.TicketStatusChangedPayload{
		OldStatus:  previous,
		NewStatus:  status,
		ResolvedAt: ticket.ResolvedAt,
	})
	return ticket, nil
}
