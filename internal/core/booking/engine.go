package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	apperrors "github.com/lorrc/cinema-booking-backend/internal/core/errors"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

// Engine runs the ticket booking state machine on top of a TicketStore.
//
// Transitions are written with a conditional status update, so of two
// concurrent bookings of one ticket exactly one succeeds. The engine never
// retries a lost write.
type Engine struct {
	store  ports.TicketStore
	logger *slog.Logger

	mu         sync.RWMutex
	strategies map[domain.TicketCategory]Strategy
}

var _ ports.BookingEngine = (*Engine)(nil)

// NewEngine creates an engine with the default category strategies.
func NewEngine(store ports.TicketStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		logger:     logger.With("component", "booking_engine"),
		strategies: DefaultStrategies(),
	}
}

// RegisterStrategy adds or replaces the strategy for a category.
func (e *Engine) RegisterStrategy(category domain.TicketCategory, strategy Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[category] = strategy
}

func (e *Engine) strategyFor(category domain.TicketCategory) (Strategy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	strategy, ok := e.strategies[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedCategory, category)
	}
	return strategy, nil
}

// Book moves an available ticket to booked by userID.
func (e *Engine) Book(ctx context.Context, ticketID, userID uuid.UUID) (*domain.Ticket, error) {
	ticket, err := e.store.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	strategy, err := e.strategyFor(ticket.Category)
	if err != nil {
		return nil, err
	}

	next, err := strategy.AttemptBook(ticket, userID)
	if err != nil {
		return nil, err
	}

	guard := domain.TransitionGuard{Status: domain.StatusAvailable}
	updated, err := e.store.CompareAndSwapStatus(ctx, ticketID, guard, next)
	if errors.Is(err, apperrors.ErrStatusConflict) {
		e.logger.DebugContext(ctx, "booking lost race", "ticket_id", ticketID, "user_id", userID)
		return nil, e.resolveBookConflict(ctx, ticketID)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReleaseBooking returns a ticket booked by userID to available.
func (e *Engine) ReleaseBooking(ctx context.Context, ticketID, userID uuid.UUID) (*domain.Ticket, error) {
	ticket, err := e.store.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	next := ticket.Clone()
	if err := next.MarkReleased(userID); err != nil {
		return nil, err
	}

	guard := domain.TransitionGuard{Status: domain.StatusBooked, BookedBy: &userID}
	updated, err := e.store.CompareAndSwapStatus(ctx, ticketID, guard, next)
	if errors.Is(err, apperrors.ErrStatusConflict) {
		e.logger.DebugContext(ctx, "release lost race", "ticket_id", ticketID, "user_id", userID)
		return nil, e.resolveReleaseConflict(ctx, ticketID, userID)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// resolveBookConflict maps the state left by the winning writer to an error.
func (e *Engine) resolveBookConflict(ctx context.Context, ticketID uuid.UUID) error {
	current, err := e.store.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if current.Status == domain.StatusCancelled {
		return apperrors.ErrTicketNotAvailable
	}
	return apperrors.ErrAlreadyBooked
}

func (e *Engine) resolveReleaseConflict(ctx context.Context, ticketID, userID uuid.UUID) error {
	current, err := e.store.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := current.CanRelease(userID); err != nil {
		return err
	}
	// The ticket was released and booked again by the same user in between.
	return apperrors.ErrNotBooked
}
