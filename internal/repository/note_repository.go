package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpline/support-desk/internal/domain"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// NoteRepository stores the append-only note ledger. There is deliberately no update
// or delete.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Note, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository builds repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO ticket_notes (id, ticket_id, author_id, note, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		note.ID,
		note.TicketID,
		note.AuthorID,
		note.Note,
		note.CreatedAt,
	)
	return mapPgError(err)
}

func (r *noteRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Note, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	const query = `
        SELECT n.id, n.ticket_id, n.author_id, COALESCE(s.name, $2), n.note, n.created_at
        FROM ticket_notes n
        LEFT JOIN staff s ON s.id = n.author_id
        WHERE n.ticket_id=$1
        ORDER BY n.created_at ASC, n.seq ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, ticketID, domain.UnknownStaffName)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	result := []domain.Note{}
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.TicketID,
			&note.AuthorID,
			&note.AuthorName,
			&note.Note,
			&note.CreatedAt,
		); err != nil {
			return nil, mapPgError(err)
		}
		result = append(result, note)
	}
	return result, mapPgError(rows.Err())
}
