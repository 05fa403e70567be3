package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// TicketStatuses lists every stored status value.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// Valid reports whether s is one of the stored status values.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// IsResolution reports whether entering s stamps resolved_at.
func (s TicketStatus) IsResolution() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// IsFinal reports whether s ends the lifecycle. Only closed and cancelled qualify;
// a resolved ticket may still be reassigned or closed.
func (s TicketStatus) IsFinal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// Severity enumerates customer-reported impact.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Rank orders severities, 0 for unknown values.
func (s Severity) Rank() int {
	for i, candidate := range Severities {
		if s == candidate {
			return i + 1
		}
	}
	return 0
}

// Customer is the contact that reported a ticket.
type Customer struct {
	Name  string
	Email string
	Phone *string
}

// Ticket is the aggregate for customer bug reports.
type Ticket struct {
	ID               string
	TicketNumber     string
	Title            string
	ApplicationName  string
	Description      string
	StepsToReproduce string
	Severity         Severity
	Customer         Customer
	ImageURLs        []string
	VideoURLs        []string
	Status           TicketStatus
	AssignedTo       *string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	ResolvedAt       *time.Time
}

// LastModified returns updated_at, or created_at for a ticket never modified.
func (t *Ticket) LastModified() time.Time {
	if t.UpdatedAt != nil {
		return *t.UpdatedAt
	}
	return t.CreatedAt
}

// Touch refreshes UpdatedAt to now, truncated to storage precision and kept strictly
// after the previous modification time.
func (t *Ticket) Touch(now time.Time) time.Time {
	next := now.UTC().Truncate(time.Microsecond)
	if last := t.LastModified(); !next.After(last) {
		next = last.Add(time.Microsecond)
	}
	t.UpdatedAt = &next
	return next
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Customer.Phone = cloneString(t.Customer.Phone)
	cp.AssignedTo = cloneString(t.AssignedTo)
	cp.UpdatedAt = cloneTime(t.UpdatedAt)
	cp.ResolvedAt = cloneTime(t.ResolvedAt)
	cp.ImageURLs = append([]string{}, t.ImageURLs...)
	cp.VideoURLs = append([]string{}, t.VideoURLs...)
	return &cp
}

// NewTicket carries the fields a customer submits.
type NewTicket struct {
	Title            string
	ApplicationName  string
	Description      string
	StepsToReproduce string
	Severity         Severity
	Customer         Customer
	ImageURLs        []string
	VideoURLs        []string
}

// TicketPatch holds optional content changes applied by staff.
type TicketPatch struct {
	Title            *string
	ApplicationName  *string
	Description      *string
	StepsToReproduce *string
	Severity         *Severity
}

// Empty reports whether the patch changes nothing.
func (p TicketPatch) Empty() bool {
	return p.Title == nil && p.ApplicationName == nil && p.Description == nil &&
		p.StepsToReproduce == nil && p.Severity == nil
}

// Apply copies set fields onto t.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.ApplicationName != nil {
		t.ApplicationName = *p.ApplicationName
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.StepsToReproduce != nil {
		t.StepsToReproduce = *p.StepsToReproduce
	}
	if p.Severity != nil {
		t.Severity = *p.Severity
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
