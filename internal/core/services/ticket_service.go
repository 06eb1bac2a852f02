package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	apperrors "github.com/lorrc/cinema-booking-backend/internal/core/errors"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

// TicketService implements the ticket catalog and booking use cases.
//
// Every mutation holds the ticket's lock across the durable write and the
// change notification, so events for one ticket are published in the order
// the writes were applied. Nothing is published when a write fails.
type TicketService struct {
	store    ports.TicketStore
	engine   ports.BookingEngine
	notifier ports.ChangeNotifier
	locks    *keyedMutex
	logger   *slog.Logger
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(
	store ports.TicketStore,
	engine ports.BookingEngine,
	notifier ports.ChangeNotifier,
	logger *slog.Logger,
) *TicketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketService{
		store:    store,
		engine:   engine,
		notifier: notifier,
		locks:    newKeyedMutex(),
		logger:   logger.With("component", "ticket_service"),
	}
}

// CreateTicket validates and stores a new available ticket.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	ticket, err := domain.NewTicket(domain.TicketParams{
		MovieTitle:  params.MovieTitle,
		SessionTime: params.SessionTime,
		SeatNumber:  params.SeatNumber,
		Price:       params.Price,
		Category:    params.Category,
	})
	if err != nil {
		return nil, err
	}

	// The id is assigned here so the lock is held before anyone can see the ticket.
	ticket.ID = uuid.New()
	unlock := s.locks.Lock(ticket.ID)
	defer unlock()

	created, err := s.store.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewTicketEvent(domain.EventTicketCreated, created))
	return created, nil
}

// UpdateTicket applies a partial edit to descriptive fields.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID uuid.UUID, patch domain.TicketPatch) (*domain.Ticket, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	patch.Normalize()

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	updated, err := s.store.Update(ctx, ticketID, patch)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewTicketEvent(domain.EventTicketUpdated, updated))
	return updated, nil
}

// DeleteTicket removes a ticket regardless of its status.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	removed, err := s.store.Delete(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewTicketDeletedEvent(ticketID))
	return removed, nil
}

// BookTicket books an available ticket for userID.
func (s *TicketService) BookTicket(ctx context.Context, ticketID, userID uuid.UUID) (*domain.Ticket, error) {
	if userID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	booked, err := s.engine.Book(ctx, ticketID, userID)
	if err != nil {
		return nil, translateBookingError(err)
	}

	s.logger.InfoContext(ctx, "ticket booked", "ticket_id", ticketID, "user_id", userID)
	s.publish(ctx, domain.NewBookingEvent(domain.EventTicketBooked, booked, userID))
	return booked, nil
}

// CancelBooking releases a booking held by userID.
func (s *TicketService) CancelBooking(ctx context.Context, ticketID, userID uuid.UUID) (*domain.Ticket, error) {
	if userID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	released, err := s.engine.ReleaseBooking(ctx, ticketID, userID)
	if err != nil {
		return nil, translateBookingError(err)
	}

	s.logger.InfoContext(ctx, "booking cancelled", "ticket_id", ticketID, "user_id", userID)
	s.publish(ctx, domain.NewBookingEvent(domain.EventTicketCancelled, released, userID))
	return released, nil
}

// ListTickets returns the whole catalog.
func (s *TicketService) ListTickets(ctx context.Context) ([]*domain.Ticket, error) {
	return s.store.List(ctx)
}

// GetTicket returns a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	return s.store.GetByID(ctx, ticketID)
}

func (s *TicketService) publish(ctx context.Context, event domain.ChangeEvent) {
	s.logger.DebugContext(ctx, "publishing change event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
	)
	s.notifier.Publish(event)
}

// translateBookingError maps engine failures to the service's error contract.
// Store failures and missing tickets pass through untouched.
func translateBookingError(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrTicketNotFound),
		errors.Is(err, apperrors.ErrStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, apperrors.ErrNotOwner):
		return apperrors.Forbidden(err)
	default:
		return apperrors.BookingFailed(err)
	}
}
