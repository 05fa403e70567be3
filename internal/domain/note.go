package domain

import "time"

// Note is an immutable staff annotation on a ticket.
type Note struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorName string
	Note       string
	CreatedAt  time.Time
}
