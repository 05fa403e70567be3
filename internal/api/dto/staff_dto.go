package dto

import (
	"time"

	"github.com/helpline/support-desk/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StaffCreateRequest payload.
type StaffCreateRequest struct {
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	EmployeeID string           `json:"employee_id"`
	Role       domain.StaffRole `json:"role"`
	Password   string           `json:"password"`
}

// StaffUpdateRequest carries optional account changes.
type StaffUpdateRequest struct {
	Name       *string           `json:"name"`
	Email      *string           `json:"email"`
	EmployeeID *string           `json:"employee_id"`
	Role       *domain.StaffRole `json:"role"`
	Password   *string           `json:"password"`
}

// StaffStatusRequest payload.
type StaffStatusRequest struct {
	Status domain.StaffStatus `json:"status"`
}

// StaffResponse never includes the password hash.
type StaffResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	EmployeeID string             `json:"employee_id"`
	Role       domain.StaffRole   `json:"role"`
	Status     domain.StaffStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	LastLogin  *time.Time         `json:"last_login"`
}

// PasswordResetRequest starts a reset for the account behind Email.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest redeems a reset token.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// PasswordResetResponse carries an issued token. ResetToken is empty unless the
// deployment returns tokens over HTTP.
type PasswordResetResponse struct {
	StaffID    string     `json:"staff_id,omitempty"`
	ResetToken string     `json:"reset_token,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}
