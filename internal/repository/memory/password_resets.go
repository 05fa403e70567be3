package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/helpline/support-desk/internal/domain"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

type passwordResetRepository struct {
	store *Store
}

func (r *passwordResetRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.staff[token.StaffID]; !ok {
		return missingReference("password_reset_tokens_staff_id_fkey")
	}
	for _, existing := range r.store.resets {
		if existing.TokenHash == token.TokenHash {
			return apperrors.NewConflict("duplicate value", map[string]any{"constraint": "password_reset_tokens_token_hash_key"})
		}
	}
	cp := *token
	r.store.resets[token.ID] = &cp
	return nil
}

func (r *passwordResetRepository) GetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, token := range r.store.resets {
		// Tokens die with their staff row, as with ON DELETE CASCADE.
		if _, ok := r.store.staff[token.StaffID]; ok && token.TokenHash == hash {
			cp := *token
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("password reset token", nil)
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	token, ok := r.store.resets[id]
	if !ok || token.UsedAt != nil {
		return apperrors.NewConflict("password reset token already used", nil)
	}
	used := at
	token.UsedAt = &used
	return nil
}

func (r *passwordResetRepository) RevokeOutstanding(ctx context.Context, staffID string, at time.Time) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, token := range r.store.resets {
		if token.StaffID == staffID && token.UsedAt == nil {
			used := at
			token.UsedAt = &used
		}
	}
	return nil
}
