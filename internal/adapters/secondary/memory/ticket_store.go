package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	apperrors "github.com/lorrc/cinema-booking-backend/internal/core/errors"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

// TicketStore keeps tickets in process memory. Records are copied on the
// way in and out so callers never share state with the store.
type TicketStore struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]*domain.Ticket
}

var _ ports.TicketStore = (*TicketStore)(nil)
var _ ports.Pinger = (*TicketStore)(nil)

// NewTicketStore creates an empty store.
func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[uuid.UUID]*domain.Ticket)}
}

func (s *TicketStore) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("create ticket", err)
	}

	record := ticket.Clone()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[record.ID] = record
	return record.Clone(), nil
}

func (s *TicketStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("get ticket", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return record.Clone(), nil
}

func (s *TicketStore) Update(ctx context.Context, id uuid.UUID, patch domain.TicketPatch) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("update ticket", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	next := record.Clone()
	next.Apply(patch)
	s.tickets[id] = next
	return next.Clone(), nil
}

func (s *TicketStore) Delete(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("delete ticket", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	delete(s.tickets, id)
	return record, nil
}

func (s *TicketStore) List(ctx context.Context) ([]*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("list tickets", err)
	}

	s.mu.RLock()
	out := make([]*domain.Ticket, 0, len(s.tickets))
	for _, record := range s.tickets {
		out = append(out, record.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SessionTime.Equal(out[j].SessionTime) {
			return out[i].SessionTime.Before(out[j].SessionTime)
		}
		return out[i].SeatNumber < out[j].SeatNumber
	})
	return out, nil
}

func (s *TicketStore) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, guard domain.TransitionGuard, next *domain.Ticket) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("swap ticket status", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	if !guard.Matches(record) {
		return nil, apperrors.ErrStatusConflict
	}

	updated := record.Clone()
	updated.Status = next.Status
	updated.BookedBy = nil
	if next.BookedBy != nil {
		owner := *next.BookedBy
		updated.BookedBy = &owner
	}
	now := time.Now().UTC()
	updated.UpdatedAt = &now

	s.tickets[id] = updated
	return updated.Clone(), nil
}

// Ping always succeeds.
func (s *TicketStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored tickets.
func (s *TicketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}
