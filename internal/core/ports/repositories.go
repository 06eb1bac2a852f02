package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
)

// TicketStore is the durable keyed store of tickets.
//
// Every method either completes atomically or leaves the record untouched.
// Driver failures are returned wrapped in errors.ErrStoreUnavailable.
type TicketStore interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	// Update merges the non-nil patch fields. Status, owner and category are never touched.
	Update(ctx context.Context, id uuid.UUID, patch domain.TicketPatch) (*domain.Ticket, error)
	// Delete removes the record and returns it as it was.
	Delete(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	// List returns all tickets ordered by session time, then seat.
	List(ctx context.Context) ([]*domain.Ticket, error)
	// CompareAndSwapStatus writes next's status and owner only if the stored
	// record still matches guard. It returns errors.ErrStatusConflict otherwise.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, guard domain.TransitionGuard, next *domain.Ticket) (*domain.Ticket, error)
}

// UserRepository stores accounts for the auth collaborator.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
