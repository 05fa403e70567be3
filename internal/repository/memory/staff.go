package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/repository"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

type staffRepository struct {
	store *Store
}

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	staff.Email = strings.ToLower(staff.Email)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.staff[staff.ID]; exists {
		return apperrors.NewConflict("duplicate value", map[string]any{"constraint": "staff_pkey"})
	}
	if err := r.uniqueLocked(staff); err != nil {
		return err
	}
	cp := *staff
	r.store.staff[staff.ID] = &cp
	return nil
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffMember) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	staff.Email = strings.ToLower(staff.Email)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.staff[staff.ID]
	if !ok {
		return apperrors.NewNotFound("staff", map[string]any{"staff_id": staff.ID})
	}
	if err := r.uniqueLocked(staff); err != nil {
		return err
	}
	cp := *staff
	cp.CreatedAt = existing.CreatedAt
	r.store.staff[staff.ID] = &cp
	return nil
}

// uniqueLocked mirrors the unique constraints on email and employee_id.
func (r *staffRepository) uniqueLocked(staff *domain.StaffMember) error {
	for id, other := range r.store.staff {
		if id == staff.ID {
			continue
		}
		if other.Email == staff.Email {
			return apperrors.NewConflict("duplicate value", map[string]any{"constraint": "staff_email_key"})
		}
		if other.EmployeeID == staff.EmployeeID {
			return apperrors.NewConflict("duplicate value", map[string]any{"constraint": "staff_employee_id_key"})
		}
	}
	return nil
}

func (r *staffRepository) Delete(ctx context.Context, id string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.staff[id]; !ok {
		return apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
	}
	delete(r.store.staff, id)
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	staff, ok := r.store.staff[id]
	if !ok {
		return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
	}
	cp := *staff
	return &cp, nil
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, staff := range r.store.staff {
		if staff.Email == email {
			cp := *staff
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("staff", nil)
}

func (r *staffRepository) List(ctx context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	result := []domain.StaffMember{}
	for _, staff := range r.store.staff {
		if filter.Role != nil && staff.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && staff.Status != *filter.Status {
			continue
		}
		result = append(result, *staff)
	}
	r.store.mu.RUnlock()

	slices.SortFunc(result, func(a, b domain.StaffMember) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.StaffMember{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}
