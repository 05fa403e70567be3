package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/helpline/support-desk/internal/auth"
	"github.com/helpline/support-desk/internal/cache"
	"github.com/helpline/support-desk/internal/clock"
	"github.com/helpline/support-desk/internal/config"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/events"
	"github.com/helpline/support-desk/internal/repository"
	"github.com/helpline/support-desk/internal/repository/memory"
)

var testEpoch = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

// sequentialNumbers yields TCK<date>-1000, -1001, ... so tests never collide.
type sequentialNumbers struct {
	clock clock.Clock
	mu    sync.Mutex
	next  int
}

func (s *sequentialNumbers) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 1000 + s.next
	s.next++
	return fmt.Sprintf("TCK%s-%04d", s.clock.Now().Format("02012006"), n)
}

type memoryCache struct {
	mu          sync.Mutex
	gen         cache.Generation
	entries     map[string]*domain.Snapshot
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*domain.Snapshot{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (*domain.Snapshot, cache.Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[fmt.Sprintf("%d:%s", c.gen, key)], c.gen, nil
}

func (c *memoryCache) Set(_ context.Context, gen cache.Generation, key string, snapshot *domain.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fmt.Sprintf("%d:%s", gen, key)] = snapshot
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidated++
	return nil
}

var _ cache.SnapshotCache = (*memoryCache)(nil)

type harness struct {
	t          *testing.T
	ctx        context.Context
	clock      *clock.FakeClock
	store      *memory.Store
	dispatcher events.Dispatcher
	cache      *memoryCache

	tickets   *TicketService
	lifecycle *LifecycleService
	notes     *NoteService
	analytics *AnalyticsService
	staff     *StaffService

	admin      *domain.StaffMember
	agent      *domain.StaffMember
	adminActor domain.Actor
	agentActor domain.Actor
}

func newHarness(t *testing.T, policy LifecyclePolicy) *harness {
	t.Helper()
	clk := clock.Fake(testEpoch)
	store := memory.NewStore(repository.TicketRepositoryOptions{
		Numbers: &sequentialNumbers{clock: clk},
		Clock:   clk,
	})
	dispatcher := events.NewInMemoryDispatcher()
	snapshots := newMemoryCache()

	h := &harness{
		t:          t,
		ctx:        context.Background(),
		clock:      clk,
		store:      store,
		dispatcher: dispatcher,
		cache:      snapshots,
	}
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:     store.Tickets(),
		NoteRepo:       store.Notes(),
		StaffRepo:      store.Staff(),
		AssignmentRepo: store.Assignments(),
		Dispatcher:     dispatcher,
		Clock:          clk,
	})
	h.lifecycle = NewLifecycleService(LifecycleDependencies{
		TicketRepo:     store.Tickets(),
		StaffRepo:      store.Staff(),
		AssignmentRepo: store.Assignments(),
		Dispatcher:     dispatcher,
		Policy:         policy,
		Clock:          clk,
	})
	h.notes = NewNoteService(NoteDependencies{
		TicketRepo: store.Tickets(),
		NoteRepo:   store.Notes(),
		StaffRepo:  store.Staff(),
		Dispatcher: dispatcher,
		Clock:      clk,
	})
	h.analytics = NewAnalyticsService(AnalyticsDependencies{
		TicketRepo: store.Tickets(),
		StaffRepo:  store.Staff(),
		Cache:      snapshots,
		Clock:      clk,
	})
	h.staff = NewStaffService(StaffDependencies{
		StaffRepo:  store.Staff(),
		Resets:     store.PasswordResets(),
		Tokens:     auth.NewTokenManager("test-secret", 5),
		BcryptCost: bcrypt.MinCost,
		Clock:      clk,
	})
	NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		Cache:      snapshots,
	}).RegisterHandlers()

	h.admin = h.seedStaff("Ada Admin", "admin@example.com", domain.StaffRoleAdmin, domain.StaffStatusActive)
	h.agent = h.seedStaff("Cal Centre", "cal@example.com", domain.StaffRoleCallCentre, domain.StaffStatusActive)
	h.adminActor = domain.Actor{ID: h.admin.ID, Role: h.admin.Role}
	h.agentActor = domain.Actor{ID: h.agent.ID, Role: h.agent.Role}
	return h
}

func defaultPolicy() LifecyclePolicy {
	return LifecyclePolicy{Transitions: config.TransitionPermissive, ResolvedAt: config.ResolvedAtFirst}
}

func (h *harness) seedStaff(name, email string, role domain.StaffRole, status domain.StaffStatus) *domain.StaffMember {
	h.t.Helper()
	member := &domain.StaffMember{
		Name:         name,
		Email:        email,
		EmployeeID:   "EMP-" + email,
		PasswordHash: "x",
		Role:         role,
		Status:       status,
		CreatedAt:    h.clock.Now(),
	}
	if err := h.store.Staff().Create(h.ctx, member); err != nil {
		h.t.Fatalf("seed staff: %v", err)
	}
	return member
}

func (h *harness) submit() *domain.Ticket {
	h.t.Helper()
	ticket, err := h.tickets.Submit(h.ctx, submission())
	if err != nil {
		h.t.Fatalf("submit: %v", err)
	}
	return ticket
}

func (h *harness) reload(id string) *domain.Ticket {
	h.t.Helper()
	ticket, err := h.store.Tickets().GetByID(h.ctx, id)
	if err != nil {
		h.t.Fatalf("reload: %v", err)
	}
	return ticket
}

func submission() domain.NewTicket {
	return domain.NewTicket{
		Title:            "Checkout page crashes",
		ApplicationName:  "Shop",
		Description:      "The checkout page shows a blank screen.",
		StepsToReproduce: "Add an item to the cart and open checkout.",
		Severity:         domain.SeverityCritical,
		Customer:         domain.Customer{Name: "Bea Buyer", Email: "bea@example.com"},
	}
}
