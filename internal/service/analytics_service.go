package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/helpline/support-desk/internal/cache"
	"github.com/helpline/support-desk/internal/clock"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/repository"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// AnalyticsService derives dashboard snapshots from ticket and staff state. It never writes.
type AnalyticsService struct {
	tickets  repository.TicketRepository
	staff    repository.StaffRepository
	cache    cache.SnapshotCache
	clock    clock.Clock
	location *time.Location
	logger   *zap.Logger
}

// AnalyticsDependencies bundles repositories and collaborators.
type AnalyticsDependencies struct {
	TicketRepo repository.TicketRepository
	StaffRepo  repository.StaffRepository
	Cache      cache.SnapshotCache
	Clock      clock.Clock
	// Location defines month boundaries. Defaults to UTC.
	Location *time.Location
	Logger   *zap.Logger
}

// NewAnalyticsService creates the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	svc := &AnalyticsService{
		tickets:  deps.TicketRepo,
		staff:    deps.StaffRepo,
		cache:    deps.Cache,
		clock:    defaultClock(deps.Clock),
		location: deps.Location,
		logger:   defaultLogger(deps.Logger),
	}
	if svc.cache == nil {
		svc.cache = cache.Noop{}
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	return svc
}

// Snapshot returns analytics for staff, served from cache unless refresh is set.
func (s *AnalyticsService) Snapshot(ctx context.Context, actor domain.Actor, dateRange *domain.DateRange, refresh bool) (*domain.Snapshot, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := validateRange(dateRange); err != nil {
		return nil, err
	}
	key := cache.Key(dateRange)
	cached, gen, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("analytics cache read failed", zap.Error(err))
	} else if cached != nil && !refresh {
		return cached, nil
	}
	cacheable := err == nil

	snapshot, err := s.Compute(ctx, dateRange)
	if err != nil {
		return nil, err
	}
	if !cacheable {
		return snapshot, nil
	}
	// gen was read before Compute, so an invalidation racing with it retires this entry.
	if err := s.cache.Set(ctx, gen, key, snapshot); err != nil {
		s.logger.Warn("analytics cache write failed", zap.Error(err))
	}
	return snapshot, nil
}

// Compute aggregates tickets created within dateRange, or all tickets when it is nil.
// Monthly buckets cover the calendar year of the range end, or the current year.
func (s *AnalyticsService) Compute(ctx context.Context, dateRange *domain.DateRange) (*domain.Snapshot, error) {
	if err := validateRange(dateRange); err != nil {
		return nil, err
	}

	filter := repository.TicketFilter{SortBy: repository.SortByCreatedAt, Ascending: true}
	if dateRange != nil {
		from, to := dateRange.From, dateRange.To
		filter.CreatedFrom = &from
		filter.CreatedTo = &to
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	role := domain.StaffRoleCallCentre
	status := domain.StaffStatusActive
	activeStaff, err := s.staff.List(ctx, repository.StaffFilter{Role: &role, Status: &status})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().In(s.location)
	year := now.Year()
	if dateRange != nil {
		year = dateRange.To.In(s.location).Year()
	}
	snapshot := domain.NewSnapshot(year, now.UTC())
	snapshot.ActiveCallCentreStaff = len(activeStaff)
	if dateRange != nil {
		r := *dateRange
		snapshot.Range = &r
	}

	current := monthStart(now)
	previous := current.AddDate(0, -1, 0)

	for i := range tickets {
		ticket := &tickets[i]
		if dateRange != nil && !dateRange.Contains(ticket.CreatedAt) {
			continue
		}
		snapshot.TotalTickets++
		snapshot.StatusCounts[ticket.Status]++
		snapshot.SeverityCounts[ticket.Severity]++
		if ticket.Status == domain.TicketStatusOpen {
			snapshot.OpenTickets++
		}
		if ticket.AssignedTo != nil {
			snapshot.AssignedTickets++
		}

		created := ticket.CreatedAt.In(s.location)
		if created.Year() == year {
			snapshot.Monthly[created.Month()-1].Created++
		}
		switch month := monthStart(created); {
		case month.Equal(current):
			snapshot.CurrentMonthCreated++
		case month.Equal(previous):
			snapshot.PreviousMonthCreated++
		}

		if !ticket.Status.IsResolution() {
			continue
		}
		snapshot.ResolvedTickets++
		if ticket.ResolvedAt == nil {
			continue
		}
		resolved := ticket.ResolvedAt.In(s.location)
		if resolved.Year() == year {
			snapshot.Monthly[resolved.Month()-1].Resolved++
		}
		switch month := monthStart(resolved); {
		case month.Equal(current):
			snapshot.CurrentMonthResolved++
		case month.Equal(previous):
			snapshot.PreviousMonthResolved++
		}
	}

	snapshot.CreatedChangePercent = percentChange(snapshot.CurrentMonthCreated, snapshot.PreviousMonthCreated)
	snapshot.ResolvedChangePercent = percentChange(snapshot.CurrentMonthResolved, snapshot.PreviousMonthResolved)
	return snapshot, nil
}

// percentChange is the month-over-month change rounded to a whole percent. A previous
// value of zero yields zero.
func percentChange(current, previous int) float64 {
	if previous == 0 {
		return 0
	}
	return math.Round(float64(current-previous) / float64(previous) * 100)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func validateRange(dateRange *domain.DateRange) error {
	if dateRange == nil {
		return nil
	}
	if dateRange.From.IsZero() || dateRange.To.IsZero() {
		return apperrors.NewValidationError("date range requires from and to", map[string]any{"range": "from and to are required"})
	}
	if dateRange.From.After(dateRange.To) {
		return apperrors.NewValidationError("date range is inverted", map[string]any{"range": "from must not be after to"})
	}
	return nil
}
