package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpline/support-desk/internal/domain"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// PasswordResetRepository manages password reset token persistence.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *domain.PasswordResetToken) error
	GetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error)
	// MarkUsed redeems the token. It fails with CONFLICT when the token was already used,
	// so concurrent redemptions cannot both succeed.
	MarkUsed(ctx context.Context, id string, at time.Time) error
	// RevokeOutstanding marks every unused token of the staff member as used.
	RevokeOutstanding(ctx context.Context, staffID string, at time.Time) error
}

type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository(pool *pgxpool.Pool) PasswordResetRepository {
	return &passwordResetRepository{pool: pool}
}

func (r *passwordResetRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO password_reset_tokens (id, staff_id, token_hash, expires_at, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		token.ID,
		token.StaffID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return mapPgError(err)
}

func (r *passwordResetRepository) GetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error) {
	const query = `
        SELECT id, staff_id, token_hash, expires_at, used_at, created_at
        FROM password_reset_tokens WHERE token_hash=$1`
	var token domain.PasswordResetToken
	err := querier(ctx, r.pool).QueryRow(ctx, query, hash).Scan(
		&token.ID,
		&token.StaffID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "password reset token", nil)
	}
	return &token, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE password_reset_tokens SET used_at=$2
        WHERE id=$1 AND used_at IS NULL`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, id, at)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewConflict("password reset token already used", nil)
	}
	return nil
}

func (r *passwordResetRepository) RevokeOutstanding(ctx context.Context, staffID string, at time.Time) error {
	const query = `
        UPDATE password_reset_tokens SET used_at=$2
        WHERE staff_id=$1 AND used_at IS NULL`
	_, err := querier(ctx, r.pool).Exec(ctx, query, staffID, at)
	return mapPgError(err)
}
