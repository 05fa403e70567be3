package dto

import (
	"time"

	"github.com/helpline/support-desk/internal/domain"
)

// AnalyticsResponse is the dashboard snapshot.
type AnalyticsResponse struct {
	TotalTickets          int                         `json:"total_tickets"`
	OpenTickets           int                         `json:"open_tickets"`
	ResolvedTickets       int                         `json:"resolved_tickets"`
	AssignedTickets       int                         `json:"assigned_tickets"`
	ActiveCallCentreStaff int                         `json:"active_callcentre_staff"`
	CurrentMonthCreated   int                         `json:"current_month_created"`
	PreviousMonthCreated  int                         `json:"previous_month_created"`
	CreatedChangePercent  float64                     `json:"created_change_percent"`
	CurrentMonthResolved  int                         `json:"current_month_resolved"`
	PreviousMonthResolved int                         `json:"previous_month_resolved"`
	ResolvedChangePercent float64                     `json:"resolved_change_percent"`
	StatusCounts          map[domain.TicketStatus]int `json:"status_counts"`
	SeverityCounts        map[domain.Severity]int     `json:"severity_counts"`
	Year                  int                         `json:"year"`
	Monthly               []domain.MonthBucket        `json:"monthly"`
	From                  *time.Time                  `json:"from,omitempty"`
	To                    *time.Time                  `json:"to,omitempty"`
	GeneratedAt           time.Time                   `json:"generated_at"`
}
