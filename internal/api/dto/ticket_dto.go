package dto

import (
	"time"

	"github.com/helpline/support-desk/internal/domain"
)

// SubmitTicketRequest is the public submission form payload.
type SubmitTicketRequest struct {
	Title            string          `json:"title"`
	ApplicationName  string          `json:"application_name"`
	Description      string          `json:"description"`
	StepsToReproduce string          `json:"steps_to_reproduce"`
	Severity         domain.Severity `json:"severity"`
	CustomerName     string          `json:"customer_name"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerPhone    *string         `json:"customer_phone"`
	ImageURLs        []string        `json:"image_urls"`
	VideoURLs        []string        `json:"video_urls"`
}

// SubmitTicketResponse carries the number the customer tracks the ticket with.
type SubmitTicketResponse struct {
	TicketNumber string    `json:"ticket_number"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicTicketView is what the public tracker shows. It omits customer contact data
// and staff identities.
type PublicTicketView struct {
	TicketNumber    string              `json:"ticket_number"`
	Title           string              `json:"title"`
	ApplicationName string              `json:"application_name"`
	Severity        domain.Severity     `json:"severity"`
	Status          domain.TicketStatus `json:"status"`
	Assigned        bool                `json:"assigned"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       *time.Time          `json:"updated_at"`
	ResolvedAt      *time.Time          `json:"resolved_at"`
}

// TicketSummary is a row in the staff ticket list.
type TicketSummary struct {
	ID              string              `json:"id"`
	TicketNumber    string              `json:"ticket_number"`
	Title           string              `json:"title"`
	ApplicationName string              `json:"application_name"`
	Severity        domain.Severity     `json:"severity"`
	Status          domain.TicketStatus `json:"status"`
	CustomerName    string              `json:"customer_name"`
	AssignedTo      *string             `json:"assigned_to"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       *time.Time          `json:"updated_at"`
	ResolvedAt      *time.Time          `json:"resolved_at"`
}

// TicketDetailResponse provides full ticket info for staff.
type TicketDetailResponse struct {
	TicketSummary
	Description      string         `json:"description"`
	StepsToReproduce string         `json:"steps_to_reproduce"`
	CustomerEmail    string         `json:"customer_email"`
	CustomerPhone    *string        `json:"customer_phone"`
	ImageURLs        []string       `json:"image_urls"`
	VideoURLs        []string       `json:"video_urls"`
	AssigneeName     *string        `json:"assignee_name"`
	Notes            []NoteResponse `json:"notes"`
}

// NoteResponse represents a staff note.
type NoteResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

// AssignmentResponse is one entry of a ticket's assignment history.
type AssignmentResponse struct {
	ID              string    `json:"id"`
	StaffID         string    `json:"staff_id"`
	PreviousStaffID *string   `json:"previous_staff_id"`
	AssignedBy      string    `json:"assigned_by"`
	At              time.Time `json:"at"`
}

// UpdateTicketRequest carries optional content changes.
type UpdateTicketRequest struct {
	Title            *string          `json:"title"`
	ApplicationName  *string          `json:"application_name"`
	Description      *string          `json:"description"`
	StepsToReproduce *string          `json:"steps_to_reproduce"`
	Severity         *domain.Severity `json:"severity"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	StaffID string `json:"staff_id"`
}

// UpdateStatusRequest payload. The status is matched case-insensitively.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AddNoteRequest payload.
type AddNoteRequest struct {
	Note string `json:"note"`
}

// PageMeta describes the slice of results returned by a list endpoint.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Count    int `json:"count"`
}
