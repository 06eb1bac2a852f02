package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	MovieTitle  string
	SessionTime time.Time
	SeatNumber  string
	Price       float64
	Category    domain.TicketCategory
}

// TicketService defines the core business operations for the ticket catalog.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, ticketID uuid.UUID, patch domain.TicketPatch) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error)
	BookTicket(ctx context.Context, ticketID, userID uuid.UUID) (*domain.Ticket, error)
	CancelBooking(ctx context.Context, ticketID, userID uuid.UUID) (*domain.Ticket, error)
	ListTickets(ctx context.Context) ([]*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error)
}

// BookingEngine applies the booking state machine to stored tickets.
type BookingEngine interface {
	Book(ctx context.Context, ticketID, userID uuid.UUID) (*domain.Ticket, error)
	ReleaseBooking(ctx context.Context, ticketID, userID uuid.UUID) (*domain.Ticket, error)
}

// ChangeNotifier fans committed ticket changes out to subscribers.
// Publish never fails from the caller's point of view.
type ChangeNotifier interface {
	Publish(event domain.ChangeEvent)
}

// ChangeHandler consumes change events outside the request path.
type ChangeHandler interface {
	HandleEvent(ctx context.Context, event domain.ChangeEvent) error
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
	TicketID        uuid.UUID
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}
