package service

import (
	"context"
	"testing"
	"time"

	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/repository"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func TestAnalyticsEmpty(t *testing.T) {
	h := newHarness(t, defaultPolicy())

	snapshot, err := h.analytics.Compute(h.ctx, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if snapshot.TotalTickets != 0 || snapshot.ResolvedTickets != 0 || snapshot.AssignedTickets != 0 || snapshot.OpenTickets != 0 {
		t.Fatalf("expected zero counts, got %+v", snapshot)
	}
	if snapshot.CreatedChangePercent != 0 || snapshot.ResolvedChangePercent != 0 {
		t.Fatalf("expected zero percentages")
	}
	if snapshot.ActiveCallCentreStaff != 1 {
		t.Fatalf("expected one active call-centre member, got %d", snapshot.ActiveCallCentreStaff)
	}
	if snapshot.Year != 2024 {
		t.Fatalf("expected current year, got %d", snapshot.Year)
	}
	for i, bucket := range snapshot.Monthly {
		if bucket.Month != domain.MonthLabels[i] || bucket.Created != 0 || bucket.Resolved != 0 {
			t.Fatalf("bucket %d: %+v", i, bucket)
		}
	}
	for _, status := range domain.TicketStatuses {
		if count, ok := snapshot.StatusCounts[status]; !ok || count != 0 {
			t.Fatalf("status %s must be present with zero count", status)
		}
	}
}

func TestAnalyticsCountsAndMonthlySeries(t *testing.T) {
	h := newHarness(t, defaultPolicy())

	h.clock.Set(day(2023, time.December, 20))
	lastYear := h.submit()
	h.clock.Set(day(2024, time.January, 5))
	if _, err := h.lifecycle.SetStatus(h.ctx, h.agentActor, lastYear.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	h.clock.Set(day(2024, time.February, 10))
	february := h.submit()
	h.clock.Set(day(2024, time.March, 2))
	if _, err := h.lifecycle.SetStatus(h.ctx, h.agentActor, february.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	h.clock.Set(day(2024, time.March, 1))
	h.submit()
	h.clock.Set(day(2024, time.March, 5))
	assigned := h.submit()
	if _, err := h.lifecycle.Assign(h.ctx, h.adminActor, assigned.ID, h.agent.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// Reopened tickets keep resolved_at but no longer count as resolved.
	h.clock.Set(day(2024, time.March, 6))
	reopened := h.submit()
	if _, err := h.lifecycle.SetStatus(h.ctx, h.agentActor, reopened.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := h.lifecycle.SetStatus(h.ctx, h.agentActor, reopened.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	h.clock.Set(testEpoch)
	snapshot, err := h.analytics.Compute(h.ctx, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	checks := []struct {
		name      string
		got, want int
	}{
		{"total", snapshot.TotalTickets, 5},
		{"open", snapshot.OpenTickets, 1},
		{"resolved", snapshot.ResolvedTickets, 2},
		{"assigned", snapshot.AssignedTickets, 1},
		{"current month created", snapshot.CurrentMonthCreated, 3},
		{"previous month created", snapshot.PreviousMonthCreated, 1},
		{"current month resolved", snapshot.CurrentMonthResolved, 1},
		{"previous month resolved", snapshot.PreviousMonthResolved, 0},
		{"jan created", snapshot.Monthly[0].Created, 0},
		{"jan resolved", snapshot.Monthly[0].Resolved, 1},
		{"feb created", snapshot.Monthly[1].Created, 1},
		{"mar created", snapshot.Monthly[2].Created, 3},
		{"mar resolved", snapshot.Monthly[2].Resolved, 1},
		{"dec created", snapshot.Monthly[11].Created, 0},
		{"status closed", snapshot.StatusCounts[domain.TicketStatusClosed], 1},
		{"status in progress", snapshot.StatusCounts[domain.TicketStatusInProgress], 1},
		{"severity critical", snapshot.SeverityCounts[domain.SeverityCritical], 5},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %d, got %d", c.name, c.want, c.got)
		}
	}
	if snapshot.CreatedChangePercent != 200 {
		t.Errorf("created change: expected 200, got %v", snapshot.CreatedChangePercent)
	}
	if snapshot.ResolvedChangePercent != 0 {
		t.Errorf("resolved change with empty previous month must be 0, got %v", snapshot.ResolvedChangePercent)
	}

	ranged, err := h.analytics.Compute(h.ctx, &domain.DateRange{From: day(2023, time.December, 1), To: day(2023, time.December, 31)})
	if err != nil {
		t.Fatalf("compute range: %v", err)
	}
	if ranged.TotalTickets != 1 || ranged.Year != 2023 || ranged.Monthly[11].Created != 1 || ranged.Range == nil {
		t.Fatalf("unexpected ranged snapshot %+v", ranged)
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		current, previous int
		want              float64
	}{
		{3, 4, -25},
		{1, 3, -67},
		{2, 3, -33},
		{4, 2, 100},
		{5, 0, 0},
		{0, 0, 0},
		{0, 7, -100},
	}
	for _, tc := range tests {
		if got := percentChange(tc.current, tc.previous); got != tc.want {
			t.Errorf("percentChange(%d, %d) = %v, want %v", tc.current, tc.previous, got, tc.want)
		}
	}
}

func TestAnalyticsRejectsInvertedRange(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	_, err := h.analytics.Compute(h.ctx, &domain.DateRange{From: day(2024, time.March, 2), To: day(2024, time.March, 1)})
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestAnalyticsSnapshotCachesUntilTicketEvent(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	h.submit()

	first, err := h.analytics.Snapshot(h.ctx, h.agentActor, nil, false)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	second, _ := h.analytics.Snapshot(h.ctx, h.agentActor, nil, false)
	if first != second {
		t.Fatalf("second read must come from cache")
	}
	refreshed, _ := h.analytics.Snapshot(h.ctx, h.agentActor, nil, true)
	if refreshed == first {
		t.Fatalf("refresh must recompute")
	}

	h.submit()
	if h.cache.invalidated == 0 {
		t.Fatalf("ticket events must invalidate the cache")
	}
	after, _ := h.analytics.Snapshot(h.ctx, h.agentActor, nil, false)
	if after.TotalTickets != 2 {
		t.Fatalf("expected fresh snapshot with 2 tickets, got %d", after.TotalTickets)
	}

	if _, err := h.analytics.Snapshot(h.ctx, domain.Actor{}, nil, false); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for anonymous caller, got %v", err)
	}
}

// interruptedTickets runs onList while analytics is reading tickets.
type interruptedTickets struct {
	repository.TicketRepository
	onList func()
}

func (r *interruptedTickets) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if r.onList != nil {
		r.onList()
		r.onList = nil
	}
	return r.TicketRepository.List(ctx, filter)
}

func TestAnalyticsSnapshotDiscardsResultRacingInvalidation(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	h.submit()

	tickets := &interruptedTickets{TicketRepository: h.store.Tickets()}
	analytics := NewAnalyticsService(AnalyticsDependencies{
		TicketRepo: tickets,
		StaffRepo:  h.store.Staff(),
		Cache:      h.cache,
		Clock:      h.clock,
	})
	tickets.onList = func() {
		if err := h.cache.Invalidate(h.ctx); err != nil {
			t.Fatalf("invalidate: %v", err)
		}
	}

	raced, err := analytics.Snapshot(h.ctx, h.agentActor, nil, false)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	next, err := analytics.Snapshot(h.ctx, h.agentActor, nil, false)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if next == raced {
		t.Fatalf("a snapshot computed across an invalidation must not be served from cache")
	}
	again, _ := analytics.Snapshot(h.ctx, h.agentActor, nil, false)
	if again != next {
		t.Fatalf("snapshot computed in the current generation must be cached")
	}
}

// unrangedTickets ignores the created range, as a repository without range support would.
type unrangedTickets struct {
	repository.TicketRepository
}

func (r unrangedTickets) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter.CreatedFrom, filter.CreatedTo = nil, nil
	return r.TicketRepository.List(ctx, filter)
}

func TestAnalyticsComputeCountsOnlyTicketsInsideRange(t *testing.T) {
	h := newHarness(t, defaultPolicy())
	h.clock.Set(day(2024, time.January, 10))
	h.submit()
	h.clock.Set(day(2024, time.February, 10))
	h.submit()

	analytics := NewAnalyticsService(AnalyticsDependencies{
		TicketRepo: unrangedTickets{TicketRepository: h.store.Tickets()},
		StaffRepo:  h.store.Staff(),
		Clock:      h.clock,
	})
	snapshot, err := analytics.Compute(h.ctx, &domain.DateRange{From: day(2024, time.February, 1), To: day(2024, time.February, 28)})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if snapshot.TotalTickets != 1 || snapshot.Monthly[0].Created != 0 || snapshot.Monthly[1].Created != 1 {
		t.Fatalf("expected only the February ticket, got total=%d monthly=%+v", snapshot.TotalTickets, snapshot.Monthly[:2])
	}
}
