package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpline/support-desk/internal/api/dto"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/service"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// AnalyticsHandler serves dashboard aggregates.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GetAnalytics GET /api/staff/analytics?from=&to=&refresh=.
func (h *AnalyticsHandler) GetAnalytics(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	from, err := parseTime("from", c.Query("from"), false)
	if err != nil {
		return err
	}
	to, err := parseTime("to", c.Query("to"), true)
	if err != nil {
		return err
	}
	var dateRange *domain.DateRange
	switch {
	case from != nil && to != nil:
		dateRange = &domain.DateRange{From: *from, To: *to}
	case from != nil || to != nil:
		return apperrors.NewValidationError("date range requires from and to", map[string]any{"range": "from and to are required together"})
	}

	snapshot, err := h.analytics.Snapshot(c.UserContext(), actor, dateRange, parseBoolQuery(c, "refresh", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": analyticsResponse(snapshot)})
}

func analyticsResponse(s *domain.Snapshot) dto.AnalyticsResponse {
	resp := dto.AnalyticsResponse{
		TotalTickets:          s.TotalTickets,
		OpenTickets:           s.OpenTickets,
		ResolvedTickets:       s.ResolvedTickets,
		AssignedTickets:       s.AssignedTickets,
		ActiveCallCentreStaff: s.ActiveCallCentreStaff,
		CurrentMonthCreated:   s.CurrentMonthCreated,
		PreviousMonthCreated:  s.PreviousMonthCreated,
		CreatedChangePercent:  s.CreatedChangePercent,
		CurrentMonthResolved:  s.CurrentMonthResolved,
		PreviousMonthResolved: s.PreviousMonthResolved,
		ResolvedChangePercent: s.ResolvedChangePercent,
		StatusCounts:          s.StatusCounts,
		SeverityCounts:        s.SeverityCounts,
		Year:                  s.Year,
		Monthly:               s.Monthly[:],
		GeneratedAt:           s.GeneratedAt,
	}
	if s.Range != nil {
		from, to := s.Range.From, s.Range.To
		resp.From, resp.To = &from, &to
	}
	return resp
}
