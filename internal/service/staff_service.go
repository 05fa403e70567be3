package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/helpline/support-desk/internal/auth"
	"github.com/helpline/support-desk/internal/clock"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/repository"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// StaffService manages staff accounts and staff login.
type StaffService struct {
	staff      repository.StaffRepository
	resets     repository.PasswordResetRepository
	tokens     *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
	clock      clock.Clock
	logger     *zap.Logger
}

// DefaultPasswordResetTTL applies when no reset TTL is configured.
const DefaultPasswordResetTTL = time.Hour

// StaffDependencies bundles collaborators for StaffService.
type StaffDependencies struct {
	StaffRepo  repository.StaffRepository
	Resets     repository.PasswordResetRepository
	Tokens     *auth.TokenManager
	BcryptCost int
	ResetTTL   time.Duration
	Clock      clock.Clock
	Logger     *zap.Logger
}

// CreateStaffInput describes a new account.
type CreateStaffInput struct {
	Name       string
	Email      string
	EmployeeID string
	Role       domain.StaffRole
	Password   string
}

// UpdateStaffInput carries optional account changes.
type UpdateStaffInput struct {
	Name       *string
	Email      *string
	EmployeeID *string
	Role       *domain.StaffRole
	Password   *string
}

// LoginResult is returned by a successful staff login.
type LoginResult struct {
	Staff     *domain.StaffMember
	Token     string
	ExpiresAt time.Time
}

// PasswordResetIssue carries a freshly issued reset token. The plain token exists only
// here; storage keeps its hash.
type PasswordResetIssue struct {
	StaffID   string
	Token     string
	ExpiresAt time.Time
}

// NewStaffService constructs the service.
func NewStaffService(deps StaffDependencies) *StaffService {
	ttl := deps.ResetTTL
	if ttl <= 0 {
		ttl = DefaultPasswordResetTTL
	}
	return &StaffService{
		staff:      deps.StaffRepo,
		resets:     deps.Resets,
		tokens:     deps.Tokens,
		bcryptCost: deps.BcryptCost,
		resetTTL:   ttl,
		clock:      defaultClock(deps.Clock),
		logger:     defaultLogger(deps.Logger),
	}
}

// Create adds a new active staff account.
func (s *StaffService) Create(ctx context.Context, actor domain.Actor, input CreateStaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.create(ctx, input)
}

func (s *StaffService) create(ctx context.Context, input CreateStaffInput) (*domain.StaffMember, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.EmployeeID = strings.TrimSpace(input.EmployeeID)

	errs := domain.FieldErrors{}
	validateStaffFields(errs, input.Name, input.Email, input.EmployeeID, input.Role)
	if utf8.RuneCountInString(input.Password) < auth.MinPasswordLength {
		errs["password"] = "must be at least 8 characters"
	}
	if len(errs) > 0 {
		return nil, apperrors.NewValidationError("invalid staff member", errs.Details())
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	member := &domain.StaffMember{
		Name:         input.Name,
		Email:        input.Email,
		EmployeeID:   input.EmployeeID,
		PasswordHash: hash,
		Role:         input.Role,
		Status:       domain.StaffStatusActive,
		CreatedAt:    s.clock.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.staff.Create(ctx, member); err != nil {
		return nil, err
	}
	s.logger.Info("staff member created", zap.String("staff_id", member.ID), zap.String("role", string(member.Role)))
	return member, nil
}

// Update edits an account. Passwords are rehashed.
func (s *StaffService) Update(ctx context.Context, actor domain.Actor, staffID string, input UpdateStaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	member, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		member.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		member.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.EmployeeID != nil {
		member.EmployeeID = strings.TrimSpace(*input.EmployeeID)
	}
	if input.Role != nil {
		if member.ID == actor.ID && *input.Role != member.Role {
			return nil, apperrors.NewValidationError("administrators cannot change their own role", map[string]any{"role": "cannot change own role"})
		}
		member.Role = *input.Role
	}

	errs := domain.FieldErrors{}
	validateStaffFields(errs, member.Name, member.Email, member.EmployeeID, member.Role)
	if input.Password != nil && utf8.RuneCountInString(*input.Password) < auth.MinPasswordLength {
		errs["password"] = "must be at least 8 characters"
	}
	if len(errs) > 0 {
		return nil, apperrors.NewValidationError("invalid staff member", errs.Details())
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		member.PasswordHash = hash
	}

	if err := s.staff.Update(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// SetStatus activates or deactivates an account. Inactive staff cannot log in, take
// assignments or write notes.
func (s *StaffService) SetStatus(ctx context.Context, actor domain.Actor, staffID string, status domain.StaffStatus) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid staff status", map[string]any{"status": "must be active or inactive"})
	}
	if staffID == actor.ID && status != domain.StaffStatusActive {
		return nil, apperrors.NewValidationError("administrators cannot deactivate themselves", map[string]any{"status": "cannot deactivate own account"})
	}
	member, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	member.Status = status
	if err := s.staff.Update(ctx, member); err != nil {
		return nil, err
	}
	s.logger.Info("staff status changed", zap.String("staff_id", member.ID), zap.String("status", string(status)))
	return member, nil
}

// Delete removes an account. Tickets and notes keep the dangling id and show the author
// or assignee as unknown; deactivation is usually the better choice.
func (s *StaffService) Delete(ctx context.Context, actor domain.Actor, staffID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if staffID == actor.ID {
		return apperrors.NewValidationError("administrators cannot delete themselves", nil)
	}
	if err := s.staff.Delete(ctx, staffID); err != nil {
		return err
	}
	s.logger.Warn("staff member deleted", zap.String("staff_id", staffID), zap.String("actor_id", actor.ID))
	return nil
}

// List returns staff accounts for any staff caller, so the assignment picker can use it.
func (s *StaffService) List(ctx context.Context, actor domain.Actor, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role filter", map[string]any{"role": "unknown role"})
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": "unknown status"})
	}
	return s.staff.List(ctx, filter)
}

// Login verifies credentials and issues an access token.
func (s *StaffService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	member, err := s.staff.GetByEmail(ctx, email)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(member.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !member.Active() {
		return nil, apperrors.NewForbidden("account is inactive")
	}

	token, expiresAt, err := s.tokens.GenerateToken(member.ID, member.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	member.LastLogin = &now
	if err := s.staff.Update(ctx, member); err != nil {
		s.logger.Warn("failed to record last login", zap.String("staff_id", member.ID), zap.Error(err))
	}
	return &LoginResult{Staff: member, Token: token, ExpiresAt: expiresAt}, nil
}

// Bootstrap creates the first administrator when no staff exist yet. It is a no-op
// otherwise, and when email is empty.
func (s *StaffService) Bootstrap(ctx context.Context, email, password string) (*domain.StaffMember, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}
	existing, err := s.staff.List(ctx, repository.StaffFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, nil
	}
	member, err := s.create(ctx, CreateStaffInput{
		Name:       "Administrator",
		Email:      email,
		EmployeeID: "ADMIN-0001",
		Role:       domain.StaffRoleAdmin,
		Password:   password,
	})
	if apperrors.IsCode(err, apperrors.CodeConflict) {
		return nil, nil
	}
	return member, err
}

// RequestPasswordReset issues a reset token for the account behind email. Unknown and
// inactive accounts yield nil without an error so callers cannot tell them apart.
func (s *StaffService) RequestPasswordReset(ctx context.Context, email string) (*PasswordResetIssue, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !domain.ValidEmail(email) {
		return nil, apperrors.NewValidationError("invalid reset request", map[string]any{"email": "must be a valid email address"})
	}
	member, err := s.staff.GetByEmail(ctx, email)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		s.logger.Debug("password reset requested for unknown email")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !member.Active() {
		s.logger.Debug("password reset requested for inactive account", zap.String("staff_id", member.ID))
		return nil, nil
	}
	return s.issueReset(ctx, member.ID)
}

// IssuePasswordReset lets an administrator hand a reset token to a staff member
// out of band.
func (s *StaffService) IssuePasswordReset(ctx context.Context, actor domain.Actor, staffID string) (*PasswordResetIssue, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	member, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !member.Active() {
		return nil, apperrors.NewValidationError("cannot reset the password of an inactive account", map[string]any{"status": "account is inactive"})
	}
	issue, err := s.issueReset(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("password reset issued", zap.String("staff_id", member.ID), zap.String("actor_id", actor.ID))
	return issue, nil
}

func (s *StaffService) issueReset(ctx context.Context, staffID string) (*PasswordResetIssue, error) {
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	// Only the newest token is redeemable.
	if err := s.resets.RevokeOutstanding(ctx, staffID, now); err != nil {
		return nil, err
	}
	token, hash := auth.NewResetToken()
	record := &domain.PasswordResetToken{
		StaffID:   staffID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.resets.Create(ctx, record); err != nil {
		return nil, err
	}
	return &PasswordResetIssue{StaffID: staffID, Token: token, ExpiresAt: record.ExpiresAt}, nil
}

// ConfirmPasswordReset redeems token and sets the new password. Unknown, used and
// expired tokens all fail with the same validation error.
func (s *StaffService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	errs := domain.FieldErrors{}
	if strings.TrimSpace(token) == "" {
		errs["token"] = "is required"
	}
	if utf8.RuneCountInString(newPassword) < auth.MinPasswordLength {
		errs["new_password"] = "must be at least 8 characters"
	}
	if len(errs) > 0 {
		return apperrors.NewValidationError("invalid reset confirmation", errs.Details())
	}

	invalid := apperrors.NewValidationError("invalid or expired reset token", map[string]any{"token": "invalid or expired"})
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	record, err := s.resets.GetByHash(ctx, auth.HashResetToken(token))
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return invalid
	}
	if err != nil {
		return err
	}
	if !record.Usable(now) {
		return invalid
	}
	if err := s.resets.MarkUsed(ctx, record.ID, now); err != nil {
		if apperrors.IsCode(err, apperrors.CodeConflict) {
			return invalid
		}
		return err
	}

	member, err := s.staff.GetByID(ctx, record.StaffID)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return invalid
	}
	if err != nil {
		return err
	}
	if !member.Active() {
		return apperrors.NewForbidden("account is inactive")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	member.PasswordHash = hash
	if err := s.staff.Update(ctx, member); err != nil {
		return err
	}
	s.logger.Info("password reset completed", zap.String("staff_id", member.ID))
	return nil
}

func validateStaffFields(errs domain.FieldErrors, name, email, employeeID string, role domain.StaffRole) {
	if utf8.RuneCountInString(name) < 2 {
		errs["name"] = "must be at least 2 characters"
	}
	if !domain.ValidEmail(email) {
		errs["email"] = "must be a valid email address"
	}
	if employeeID == "" {
		errs["employee_id"] = "is required"
	}
	if !role.Valid() {
		errs["role"] = "must be admin or callcentre"
	}
}
