package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/events"
	"github.com/helpline/support-desk/internal/repository"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

func TestSubmitPublishesCreatedEvent(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	var (
		mu       sync.Mutex
		received []events.Event
	)
	h.dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
		return nil
	})

	ticket := h.submit()
	if ticket.Status != domain.TicketStatusOpen || ticket.AssignedTo != nil || ticket.UpdatedAt != nil || ticket.ResolvedAt != nil {
		t.Fatalf("new ticket must be open and untouched: %+v", ticket)
	}
	if !strings.HasPrefix(ticket.TicketNumber, "TCK15032024-") {
		t.Fatalf("unexpected ticket number %s", ticket.TicketNumber)
	}
	if len(received) != 1 || received[0].TicketID != ticket.ID || received[0].Actor.StaffID != "" {
		t.Fatalf("expected one anonymous created event, got %+v", received)
	}

	bad := submission()
	bad.Customer.Email = "not-an-email"
	if _, err := h.tickets.Submit(h.ctx, bad); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("failed submissions must not publish")
	}
}

func TestLookupNormalizesNumber(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	ticket := h.submit()

	found, err := h.tickets.Lookup(h.ctx, "  "+strings.ToLower(ticket.TicketNumber)+" ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != ticket.ID {
		t.Fatalf("expected %s, got %s", ticket.ID, found.ID)
	}
	if _, err := h.tickets.Lookup(h.ctx, "   "); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_FAILED for blank number, got %v", err)
	}
	if _, err := h.tickets.Lookup(h.ctx, "TCK01012000-0000"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	for _, malformed := range []string{"TCK-1", "1503202401000", "TCK15032024-10000"} {
		if _, err := h.tickets.Lookup(h.ctx, malformed); !apperrors.IsCode(err, apperrors.CodeNotFound) {
			t.Fatalf("expected NOT_FOUND for %q, got %v", malformed, err)
		}
	}
}

func TestListValidatesAndClampsFilter(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	for i := 0; i < 3; i++ {
		h.clock.Advance(time.Minute)
		h.submit()
	}

	from := testEpoch.Add(time.Hour)
	to := testEpoch
	tests := []struct {
		name   string
		filter repository.TicketFilter
	}{
		{"sort", repository.TicketFilter{SortBy: "title"}},
		{"status", repository.TicketFilter{Statuses: []domain.TicketStatus{"pending"}}},
		{"range", repository.TicketFilter{CreatedFrom: &from, CreatedTo: &to}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.tickets.List(h.ctx, h.agentActor, tc.filter)
			if !apperrors.IsCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected VALIDATION_FAILED, got %v", err)
			}
		})
	}

	if _, err := h.tickets.List(h.ctx, domain.Actor{}, repository.TicketFilter{}); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	all, err := h.tickets.List(h.ctx, h.agentActor, repository.TicketFilter{Limit: 10_000, Offset: -4})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(all))
	}
	if !all[0].CreatedAt.After(all[2].CreatedAt) {
		t.Fatalf("default ordering must be newest first")
	}

	open, err := h.tickets.List(h.ctx, h.agentActor, repository.TicketFilter{Statuses: ParseStatuses(" OPEN , ")})
	if err != nil || len(open) != 3 {
		t.Fatalf("expected 3 open tickets, got %d (%v)", len(open), err)
	}
}

func TestGetReportsAssigneeName(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	ticket := h.submit()

	detail, err := h.tickets.Get(h.ctx, h.agentActor, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.AssigneeName != nil || len(detail.Notes) != 0 {
		t.Fatalf("unassigned ticket must have no assignee name")
	}

	if _, err := h.lifecycle.Assign(h.ctx, h.adminActor, ticket.ID, h.agent.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := h.notes.AddNote(h.ctx, h.agentActor, ticket.ID, "called the customer"); err != nil {
		t.Fatalf("note: %v", err)
	}
	detail, _ = h.tickets.Get(h.ctx, h.agentActor, ticket.ID)
	if detail.AssigneeName == nil || *detail.AssigneeName != h.agent.Name || len(detail.Notes) != 1 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	history, err := h.tickets.Assignments(h.ctx, h.agentActor, ticket.ID)
	if err != nil || len(history) != 1 || history[0].StaffID != h.agent.ID || history[0].AssignedBy != h.admin.ID {
		t.Fatalf("unexpected assignment history %+v (%v)", history, err)
	}

	if err := h.store.Staff().Delete(h.ctx, h.agent.ID); err != nil {
		t.Fatalf("delete staff: %v", err)
	}
	detail, err = h.tickets.Get(h.ctx, h.adminActor, ticket.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if *detail.AssigneeName != domain.UnknownStaffName || *detail.Ticket.AssignedTo != h.agent.ID {
		t.Fatalf("deleted assignee must read as Unknown, got %q", *detail.AssigneeName)
	}

	if _, err := h.tickets.Get(h.ctx, h.adminActor, "missing"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestUpdateDetailsIsAdminOnly(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	ticket := h.submit()
	title := "Checkout page crashes on Safari"
	severity := domain.SeverityHigh
	patch := domain.TicketPatch{Title: &title, Severity: &severity}

	if _, err := h.tickets.UpdateDetails(h.ctx, h.agentActor, ticket.ID, patch); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for call-centre staff, got %v", err)
	}
	if _, err := h.tickets.UpdateDetails(h.ctx, h.adminActor, ticket.ID, domain.TicketPatch{}); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_FAILED for empty patch, got %v", err)
	}

	var fields []string
	h.dispatcher.Subscribe(events.EventTicketUpdated, func(_ context.Context, event events.Event) error {
		fields = event.Payload.(events.TicketUpdatedPayload).Fields
		return nil
	})
	h.clock.Advance(time.Minute)
	updated, err := h.tickets.UpdateDetails(h.ctx, h.adminActor, ticket.ID, patch)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title || updated.Severity != severity || updated.UpdatedAt == nil {
		t.Fatalf("unexpected ticket %+v", updated)
	}
	if updated.Status != ticket.Status || updated.TicketNumber != ticket.TicketNumber {
		t.Fatalf("content edits must not change status or number")
	}
	if strings.Join(fields, ",") != "title,severity" {
		t.Fatalf("unexpected event fields %v", fields)
	}
}
