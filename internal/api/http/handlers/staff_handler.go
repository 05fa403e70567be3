package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpline/support-desk/internal/api/dto"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/repository"
	"github.com/helpline/support-desk/internal/service"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// StaffHandler exposes staff login and account administration.
type StaffHandler struct {
	staff             *service.StaffService
	exposeResetTokens bool
}

// NewStaffHandler constructs handler. exposeResetTokens makes self-service reset
// requests return the token in the response body.
func NewStaffHandler(staffService *service.StaffService, exposeResetTokens bool) *StaffHandler {
	return &StaffHandler{staff: staffService, exposeResetTokens: exposeResetTokens}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.staff.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(result.Staff),
			"auth":  dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	})
}

// RequestPasswordReset handles POST /auth/staff/password/reset/request. The response is
// 202 whether or not the email belongs to an account.
func (h *StaffHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.staff.RequestPasswordReset(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	resp := dto.PasswordResetResponse{}
	if issue != nil && h.exposeResetTokens {
		resp = resetResponse(issue)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": resp})
}

// ConfirmPasswordReset handles POST /auth/staff/password/reset/confirm.
func (h *StaffHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.staff.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// IssuePasswordReset handles POST /api/admin/staff/:id/password-reset.
func (h *StaffHandler) IssuePasswordReset(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	issue, err := h.staff.IssuePasswordReset(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resetResponse(issue)})
}

// ListStaff handles GET /api/staff/members?role=&status=.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	list, err := h.staff.List(c.UserContext(), actor, parseStaffListFilter(c))
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, staffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateStaff handles POST /api/admin/staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.StaffCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.staff.Create(c.UserContext(), actor, service.CreateStaffInput{
		Name:       req.Name,
		Email:      req.Email,
		EmployeeID: req.EmployeeID,
		Role:       req.Role,
		Password:   req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(member)})
}

// UpdateStaff handles PUT /api/admin/staff/:id.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.StaffUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.staff.Update(c.UserContext(), actor, c.Params("id"), service.UpdateStaffInput{
		Name:       req.Name,
		Email:      req.Email,
		EmployeeID: req.EmployeeID,
		Role:       req.Role,
		Password:   req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(member)})
}

// SetStaffStatus handles POST /api/admin/staff/:id/status.
func (h *StaffHandler) SetStaffStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.StaffStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.StaffStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	member, err := h.staff.SetStatus(c.UserContext(), actor, c.Params("id"), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(member)})
}

// DeleteStaff handles DELETE /api/admin/staff/:id.
func (h *StaffHandler) DeleteStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.staff.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseStaffListFilter(c *fiber.Ctx) repository.StaffFilter {
	var filter repository.StaffFilter
	if roleStr := c.Query("role"); roleStr != "" {
		role := domain.StaffRole(strings.ToLower(roleStr))
		filter.Role = &role
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.StaffStatus(strings.ToLower(statusStr))
		filter.Status = &status
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:         staff.ID,
		Name:       staff.Name,
		Email:      staff.Email,
		EmployeeID: staff.EmployeeID,
		Role:       staff.Role,
		Status:     staff.Status,
		CreatedAt:  staff.CreatedAt,
		LastLogin:  staff.LastLogin,
	}
}

func resetResponse(issue *service.PasswordResetIssue) dto.PasswordResetResponse {
	expiresAt := issue.ExpiresAt
	return dto.PasswordResetResponse{StaffID: issue.StaffID, ResetToken: issue.Token, ExpiresAt: &expiresAt}
}
