package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpline/support-desk/internal/domain"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// AssignmentRepository stores the assignment audit trail.
type AssignmentRepository interface {
	Create(ctx context.Context, event *domain.AssignmentEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentEvent, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository builds repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) Create(ctx context.Context, event *domain.AssignmentEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO assignment_events (id, ticket_id, staff_id, previous_staff_id, assigned_by, assigned_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		event.ID,
		event.TicketID,
		event.StaffID,
		event.PreviousStaffID,
		event.AssignedBy,
		event.At,
	)
	return mapPgError(err)
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentEvent, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	const query = `
        SELECT id, ticket_id, staff_id, previous_staff_id, assigned_by, assigned_at
        FROM assignment_events WHERE ticket_id=$1 ORDER BY assigned_at ASC, seq ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	result := []domain.AssignmentEvent{}
	for rows.Next() {
		var event domain.AssignmentEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.StaffID,
			&event.PreviousStaffID,
			&event.AssignedBy,
			&event.At,
		); err != nil {
			return nil, mapPgError(err)
		}
		result = append(result, event)
	}
	return result, mapPgError(rows.Err())
}
