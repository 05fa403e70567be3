package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpline/support-desk/internal/clock"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/ticketnumber"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// SortField selects the list ordering column.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortBySeverity  SortField = "severity"
)

// Valid reports whether f is a supported sort column.
func (f SortField) Valid() bool {
	return f == SortByCreatedAt || f == SortByUpdatedAt || f == SortBySeverity
}

// TicketFilter captures staff search parameters. A zero Limit returns every match.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	AssigneeID  *string
	Unassigned  bool
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      SortField
	Ascending   bool
	Limit       int
	Offset      int
}

// MutateFunc edits ticket in place. The context carries the surrounding transaction.
type MutateFunc func(ctx context.Context, ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create validates input and stores a new open ticket under a freshly generated
	// unique number. Only number generation is retried on collision.
	Create(ctx context.Context, input domain.NewTicket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Update applies a content patch and refreshes updated_at.
	Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error)
	// Mutate serializes a read-modify-write on one ticket. Either every change made by fn
	// (including writes fn performs through sibling repositories with its context) is
	// persisted, or none is.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Ticket, error)
}

// TicketRepositoryOptions configures ticket creation.
type TicketRepositoryOptions struct {
	Numbers     ticketnumber.Source
	Clock       clock.Clock
	MaxAttempts int
}

// WithDefaults fills unset options with the real clock, the standard generator and
// DefaultNumberAttempts.
func (o TicketRepositoryOptions) WithDefaults() TicketRepositoryOptions {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Numbers == nil {
		o.Numbers = ticketnumber.NewGenerator(o.Clock)
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultNumberAttempts
	}
	return o
}

// NewOpenTicket builds the stored form of a validated submission.
func NewOpenTicket(input domain.NewTicket, now time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:               uuid.NewString(),
		Title:            input.Title,
		ApplicationName:  input.ApplicationName,
		Description:      input.Description,
		StepsToReproduce: input.StepsToReproduce,
		Severity:         input.Severity,
		Customer:         input.Customer,
		ImageURLs:        input.ImageURLs,
		VideoURLs:        input.VideoURLs,
		Status:           domain.TicketStatusOpen,
		CreatedAt:        now.UTC().Truncate(time.Microsecond),
	}
}

// PrepareSubmission normalizes and validates input at the repository boundary.
func PrepareSubmission(input domain.NewTicket) (domain.NewTicket, error) {
	input = input.Normalize()
	if errs := input.Validate(); errs != nil {
		return input, apperrors.NewValidationError("invalid ticket submission", errs.Details())
	}
	return input, nil
}

type ticketRepository struct {
	pool *pgxpool.Pool
	opts TicketRepositoryOptions
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool, opts TicketRepositoryOptions) TicketRepository {
	return &ticketRepository{pool: pool, opts: opts.WithDefaults()}
}

const ticketColumns = `id, ticket_number, title, application_name, description, steps_to_reproduce,
               severity, customer_name, customer_email, customer_phone, image_urls, video_urls,
               status, assigned_to, created_at, updated_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, input domain.NewTicket) (*domain.Ticket, error) {
	input, err := PrepareSubmission(input)
	if err != nil {
		return nil, err
	}
	ticket := NewOpenTicket(input, r.opts.Clock.Now())

	const query = `
        INSERT INTO tickets (id, ticket_number, title, application_name, description, steps_to_reproduce,
            severity, customer_name, customer_email, customer_phone, image_urls, video_urls, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (ticket_number) DO NOTHING`

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		ticket.TicketNumber = ticketnumber.Normalize(r.opts.Numbers.Generate())
		cmd, err := querier(ctx, r.pool).Exec(ctx, query,
			ticket.ID,
			ticket.TicketNumber,
			ticket.Title,
			ticket.ApplicationName,
			ticket.Description,
			ticket.StepsToReproduce,
			ticket.Severity,
			ticket.Customer.Name,
			ticket.Customer.Email,
			ticket.Customer.Phone,
			ticket.ImageURLs,
			ticket.VideoURLs,
			ticket.Status,
			ticket.CreatedAt,
		)
		if err != nil {
			return nil, mapPgError(err)
		}
		if cmd.RowsAffected() == 1 {
			return ticket, nil
		}
		lastErr = apperrors.NewConflict("ticket number already in use", map[string]any{"ticket_number": ticket.TicketNumber})
	}
	return nil, apperrors.NewCreateFailed(r.opts.MaxAttempts, lastErr)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(querier(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": id})
	}
	return ticket, nil
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	number = ticketnumber.Normalize(number)
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number=$1`
	ticket, err := scanTicket(querier(ctx, r.pool).QueryRow(ctx, query, number))
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_number": number})
	}
	return ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if errs := patch.Validate(); errs != nil {
		return nil, apperrors.NewValidationError("invalid ticket update", errs.Details())
	}
	return r.Mutate(ctx, id, func(_ context.Context, ticket *domain.Ticket) error {
		patch.Apply(ticket)
		ticket.Touch(r.opts.Clock.Now())
		return nil
	})
}

func (r *ticketRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	ticket, err := scanTicket(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": id})
	}

	if err := fn(WithTx(ctx, tx), ticket); err != nil {
		return nil, err
	}

	const update = `
        UPDATE tickets SET title=$1, application_name=$2, description=$3, steps_to_reproduce=$4,
            severity=$5, status=$6, assigned_to=$7, updated_at=$8, resolved_at=$9
        WHERE id=$10`
	cmd, err := tx.Exec(ctx, update,
		ticket.Title,
		ticket.ApplicationName,
		ticket.Description,
		ticket.StepsToReproduce,
		ticket.Severity,
		ticket.Status,
		ticket.AssignedTo,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
		ticket.ID,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Unassigned {
		clauses = append(clauses, "assigned_to IS NULL")
	} else if filter.AssigneeID != nil {
		if _, err := uuid.Parse(*filter.AssigneeID); err != nil {
			return []domain.Ticket{}, nil
		}
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + escapeLike(strings.ToLower(strings.TrimSpace(*filter.SearchTerm))) + "%"
		args = append(args, search)
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(ticket_number) LIKE %[1]s OR LOWER(customer_name) LIKE %[1]s OR LOWER(title) LIKE %[1]s OR LOWER(application_name) LIKE %[1]s)", p))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s`,
		ticketColumns, strings.Join(clauses, " AND "), orderClause(filter))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, mapPgError(err)
	}
	return tickets, nil
}

func orderClause(filter TicketFilter) string {
	dir := "DESC"
	if filter.Ascending {
		dir = "ASC"
	}
	switch filter.SortBy {
	case SortByUpdatedAt:
		return fmt.Sprintf("COALESCE(updated_at, created_at) %s, id %s", dir, dir)
	case SortBySeverity:
		return fmt.Sprintf(`CASE severity WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'critical' THEN 4 ELSE 0 END %s, created_at DESC, id DESC`, dir)
	default:
		return fmt.Sprintf("created_at %s, id %s", dir, dir)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.ApplicationName,
		&ticket.Description,
		&ticket.StepsToReproduce,
		&ticket.Severity,
		&ticket.Customer.Name,
		&ticket.Customer.Email,
		&ticket.Customer.Phone,
		&ticket.ImageURLs,
		&ticket.VideoURLs,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
