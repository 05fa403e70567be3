package domain

import "time"

// MonthLabels are the chart labels for calendar months, January first.
var MonthLabels = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// DateRange bounds analytics to tickets created within [From, To].
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// MonthBucket counts tickets created and resolved within a calendar month.
type MonthBucket struct {
	Month    string `json:"month"`
	Created  int    `json:"created"`
	Resolved int    `json:"resolved"`
}

// Snapshot is a derived, read-only aggregate over ticket state.
type Snapshot struct {
	TotalTickets          int                  `json:"total_tickets"`
	OpenTickets           int                  `json:"open_tickets"`
	ResolvedTickets       int                  `json:"resolved_tickets"`
	AssignedTickets       int                  `json:"assigned_tickets"`
	ActiveCallCentreStaff int                  `json:"active_callcentre_staff"`
	CurrentMonthCreated   int                  `json:"current_month_created"`
	PreviousMonthCreated  int                  `json:"previous_month_created"`
	CreatedChangePercent  float64              `json:"created_change_percent"`
	CurrentMonthResolved  int                  `json:"current_month_resolved"`
	PreviousMonthResolved int                  `json:"previous_month_resolved"`
	ResolvedChangePercent float64              `json:"resolved_change_percent"`
	StatusCounts          map[TicketStatus]int `json:"status_counts"`
	SeverityCounts        map[Severity]int     `json:"severity_counts"`
	Year                  int                  `json:"year"`
	Monthly               [12]MonthBucket      `json:"monthly"`
	Range                 *DateRange           `json:"range,omitempty"`
	GeneratedAt           time.Time            `json:"generated_at"`
}

// NewSnapshot returns an all-zero snapshot for year with labelled month buckets.
func NewSnapshot(year int, generatedAt time.Time) *Snapshot {
	s := &Snapshot{
		StatusCounts:   make(map[TicketStatus]int, len(TicketStatuses)),
		SeverityCounts: make(map[Severity]int, len(Severities)),
		Year:           year,
		GeneratedAt:    generatedAt,
	}
	for _, status := range TicketStatuses {
		s.StatusCounts[status] = 0
	}
	for _, severity := range Severities {
		s.SeverityCounts[severity] = 0
	}
	for i, label := range MonthLabels {
		s.Monthly[i].Month = label
	}
	return s
}
