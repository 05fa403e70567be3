// Package memory implements the repository interfaces in process memory. It backs the
// server when no Postgres DSN is configured and serves as the repository double in tests.
package memory

import (
	"context"
	"sync"

	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/repository"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

// Store holds every record. Reads return copies; writes to one ticket are serialized by a
// per-ticket lock held for the whole of Mutate.
type Store struct {
	opts repository.TicketRepositoryOptions

	mu          sync.RWMutex
	tickets     map[string]*domain.Ticket
	byNumber    map[string]string
	staff       map[string]*domain.StaffMember
	notes       map[string][]domain.Note
	assignments map[string][]domain.AssignmentEvent
	resets      map[string]*domain.PasswordResetToken

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStore returns an empty store.
func NewStore(opts repository.TicketRepositoryOptions) *Store {
	return &Store{
		opts:        opts.WithDefaults(),
		tickets:     map[string]*domain.Ticket{},
		byNumber:    map[string]string{},
		staff:       map[string]*domain.StaffMember{},
		notes:       map[string][]domain.Note{},
		assignments: map[string][]domain.AssignmentEvent{},
		resets:      map[string]*domain.PasswordResetToken{},
		locks:       map[string]*sync.Mutex{},
	}
}

// Tickets exposes the store as a TicketRepository.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepository{store: s} }

// Staff exposes the store as a StaffRepository.
func (s *Store) Staff() repository.StaffRepository { return &staffRepository{store: s} }

// Notes exposes the store as a NoteRepository.
func (s *Store) Notes() repository.NoteRepository { return &noteRepository{store: s} }

// Assignments exposes the store as an AssignmentRepository.
func (s *Store) Assignments() repository.AssignmentRepository {
	return &assignmentRepository{store: s}
}

// PasswordResets exposes the store as a PasswordResetRepository.
func (s *Store) PasswordResets() repository.PasswordResetRepository {
	return &passwordResetRepository{store: s}
}

func (s *Store) ticketLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// pending collects sibling writes made inside Mutate until the ticket change commits.
type pending struct {
	notes       []domain.Note
	assignments []domain.AssignmentEvent
}

type pendingKey struct{}

func withPending(ctx context.Context, p *pending) context.Context {
	return context.WithValue(ctx, pendingKey{}, p)
}

func pendingFrom(ctx context.Context) *pending {
	p, _ := ctx.Value(pendingKey{}).(*pending)
	return p
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewRepositoryUnavailable(err)
	}
	return nil
}

func missingReference(constraint string) error {
	return apperrors.NewValidationError("referenced record does not exist", map[string]any{"constraint": constraint})
}
