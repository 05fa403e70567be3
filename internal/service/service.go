// Package service holds the ticket lifecycle use cases. Services enforce actor rules,
// run state changes through repository transactions and announce committed changes
// on the event dispatcher.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpline/support-desk/internal/clock"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/events"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

const publishTimeout = 5 * time.Second

func requireStaff(actor domain.Actor) error {
	if !actor.IsStaff() {
		return apperrors.NewForbidden("staff role required")
	}
	return nil
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// eventPublisher stamps and dispatches events once the change they describe has committed.
// Subscriber failures are logged and never reach the caller.
type eventPublisher struct {
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

func newEventPublisher(dispatcher events.Dispatcher, clk clock.Clock, logger *zap.Logger) eventPublisher {
	return eventPublisher{dispatcher: dispatcher, clock: defaultClock(clk), logger: defaultLogger(logger)}
}

func (p eventPublisher) publish(ctx context.Context, eventType events.EventType, ticket *domain.Ticket, actor events.Actor, payload any) {
	if p.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Actor:        actor,
		Timestamp:    p.clock.Now().UTC(),
		Payload:      payload,
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event subscribers failed",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
}

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func defaultClock(clk clock.Clock) clock.Clock {
	if clk == nil {
		return clock.Real()
	}
	return clk
}
