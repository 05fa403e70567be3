package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpline/support-desk/internal/domain"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	Update(ctx context.Context, staff *domain.StaffMember) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
}

// StaffFilter defines query params for staff listing. A zero Limit returns every match.
type StaffFilter struct {
	Role   *domain.StaffRole
	Status *domain.StaffStatus
	Limit  int
	Offset int
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, name, email, employee_id, password_hash, role, status, created_at, last_login`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO staff (id, name, email, employee_id, password_hash, role, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := querier(ctx, r.pool).Exec(ctx, query,
		staff.ID,
		staff.Name,
		strings.ToLower(staff.Email),
		staff.EmployeeID,
		staff.PasswordHash,
		staff.Role,
		staff.Status,
		staff.CreatedAt,
	)
	return mapPgError(err)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffMember) error {
	if _, err := uuid.Parse(staff.ID); err != nil {
		return apperrors.NewNotFound("staff", map[string]any{"staff_id": staff.ID})
	}
	const query = `
        UPDATE staff
        SET name=$1, email=$2, employee_id=$3, password_hash=$4, role=$5, status=$6, last_login=$7
        WHERE id=$8`

	cmd, err := querier(ctx, r.pool).Exec(ctx, query,
		staff.Name,
		strings.ToLower(staff.Email),
		staff.EmployeeID,
		staff.PasswordHash,
		staff.Role,
		staff.Status,
		staff.LastLogin,
		staff.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("staff", map[string]any{"staff_id": staff.ID})
	}
	return nil
}

func (r *staffRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
	}
	cmd, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM staff WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
	}
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id=$1`
	// Inside a transaction the row stays share-locked until commit, so it cannot be
	// deactivated or deleted underneath the caller.
	if _, inTx := txFrom(ctx); inTx {
		query += ` FOR SHARE`
	}
	staff, err := scanStaff(querier(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "staff", map[string]any{"staff_id": id})
	}
	return staff, nil
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE email=$1`
	staff, err := scanStaff(querier(ctx, r.pool).QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, notFoundOr(err, "staff", nil)
	}
	return staff, nil
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"
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

	result := []domain.StaffMember{}
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, mapPgError(err)
		}
		result = append(result, *staff)
	}
	return result, mapPgError(rows.Err())
}

func scanStaff(row pgx.Row) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := row.Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.EmployeeID,
		&staff.PasswordHash,
		&staff.Role,
		&staff.Status,
		&staff.CreatedAt,
		&staff.LastLogin,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}
