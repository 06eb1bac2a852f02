package booking

import (
	"github.com/google/uuid"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
)

// Strategy decides whether a ticket of a given category can be booked.
// It returns a modified copy and must not mutate its input.
type Strategy interface {
	AttemptBook(ticket *domain.Ticket, userID uuid.UUID) (*domain.Ticket, error)
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc func(ticket *domain.Ticket, userID uuid.UUID) (*domain.Ticket, error)

// AttemptBook calls f.
func (f StrategyFunc) AttemptBook(ticket *domain.Ticket, userID uuid.UUID) (*domain.Ticket, error) {
	return f(ticket, userID)
}

// OrdinaryStrategy books standard seats.
type OrdinaryStrategy struct{}

func (OrdinaryStrategy) AttemptBook(ticket *domain.Ticket, userID uuid.UUID) (*domain.Ticket, error) {
	return bookAvailable(ticket, userID)
}

// VIPStrategy books premium seats. It currently applies the same rule as
// OrdinaryStrategy and exists so the two policies can diverge.
type VIPStrategy struct{}

func (VIPStrategy) AttemptBook(ticket *domain.Ticket, userID uuid.UUID) (*domain.Ticket, error) {
	return bookAvailable(ticket, userID)
}

func bookAvailable(ticket *domain.Ticket, userID uuid.UUID) (*domain.Ticket, error) {
	next := ticket.Clone()
	if err := next.MarkBooked(userID); err != nil {
		return nil, err
	}
	return next, nil
}

// DefaultStrategies returns the strategy table for the built-in categories.
func DefaultStrategies() map[domain.TicketCategory]Strategy {
	return map[domain.TicketCategory]Strategy{
		domain.CategoryOrdinary: OrdinaryStrategy{},
		domain.CategoryVIP:      VIPStrategy{},
	}
}
