package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	apperrors "github.com/lorrc/cinema-booking-backend/internal/core/errors"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
	"github.com/lorrc/cinema-booking-backend/internal/core/utils"
)

const ticketColumns = `id, movie_title, session_time, seat_number, price, category, status, booked_by, created_at, updated_at`

// TicketStore is the secondary adapter for ticket persistence.
type TicketStore struct {
	pool *pgxpool.Pool
	tx   *TransactionManager
}

// Ensure TicketStore implements the ports.TicketStore interface.
var _ ports.TicketStore = (*TicketStore)(nil)
var _ ports.Pinger = (*TicketStore)(nil)

// NewTicketStore creates a new ticket store.
func NewTicketStore(pool *pgxpool.Pool) *TicketStore {
	return &TicketStore{pool: pool, tx: NewTransactionManager(pool)}
}

// scanTicket converts a database row to a core domain model.
func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t         domain.Ticket
		category  string
		status    string
		bookedBy  pgtype.UUID
		createdAt time.Time
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&t.ID,
		&t.MovieTitle,
		&t.SessionTime,
		&t.SeatNumber,
		&t.Price,
		&category,
		&status,
		&bookedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.SessionTime = t.SessionTime.UTC()
	t.Category = domain.TicketCategory(category)
	t.Status = domain.TicketStatus(status)
	t.BookedBy = utils.FromNullUUID(bookedBy)
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = utils.FromNullTime(updatedAt)
	return &t, nil
}

// queryTicket runs a single-row statement. pgx.ErrNoRows is returned as is
// so callers can decide what a missing row means.
func (s *TicketStore) queryTicket(ctx context.Context, op, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := scanTicket(GetDBTX(ctx, s.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.StoreUnavailable(op, err)
	}
	return ticket, nil
}

// Create persists a new ticket. A zero ID is assigned by the database.
func (s *TicketStore) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
INSERT INTO tickets (id, movie_title, session_time, seat_number, price, category, status, booked_by, created_at, updated_at)
VALUES (COALESCE($1, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), $10)
RETURNING ` + ticketColumns

	createdAt := pgtype.Timestamptz{Time: ticket.CreatedAt, Valid: !ticket.CreatedAt.IsZero()}

	return s.queryTicket(ctx, "create ticket", query,
		utils.ToUUID(ticket.ID),
		ticket.MovieTitle,
		ticket.SessionTime,
		ticket.SeatNumber,
		ticket.Price,
		string(ticket.Category),
		string(ticket.Status),
		utils.ToNullUUID(ticket.BookedBy),
		createdAt,
		utils.ToNullTime(ticket.UpdatedAt),
	)
}

// GetByID retrieves a single ticket by its ID.
func (s *TicketStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := s.queryTicket(ctx, "get ticket", query, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTicketNotFound
	}
	return ticket, err
}

// Update merges the non-nil patch fields in one statement.
func (s *TicketStore) Update(ctx context.Context, id uuid.UUID, patch domain.TicketPatch) (*domain.Ticket, error) {
	const query = `
UPDATE tickets SET
    movie_title  = COALESCE($2, movie_title),
    session_time = COALESCE($3, session_time),
    seat_number  = COALESCE($4, seat_number),
    price        = COALESCE($5, price),
    updated_at   = now()
WHERE id = $1
RETURNING ` + ticketColumns

	var sessionTime pgtype.Timestamptz
	if patch.SessionTime != nil {
		sessionTime = pgtype.Timestamptz{Time: *patch.SessionTime, Valid: true}
	}

	ticket, err := s.queryTicket(ctx, "update ticket", query,
		id,
		patch.MovieTitle,
		sessionTime,
		patch.SeatNumber,
		patch.Price,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTicketNotFound
	}
	return ticket, err
}

// Delete removes the ticket and returns the removed record.
func (s *TicketStore) Delete(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const query = `DELETE FROM tickets WHERE id = $1 RETURNING ` + ticketColumns

	ticket, err := s.queryTicket(ctx, "delete ticket", query, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTicketNotFound
	}
	return ticket, err
}

// List returns every ticket ordered by session time, then seat.
func (s *TicketStore) List(ctx context.Context) ([]*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets ORDER BY session_time, seat_number`

	rows, err := GetDBTX(ctx, s.pool).Query(ctx, query)
	if err != nil {
		return nil, apperrors.StoreUnavailable("list tickets", err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, apperrors.StoreUnavailable("list tickets", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("list tickets", err)
	}

	return tickets, nil
}

// CompareAndSwapStatus writes status, owner and updated_at of next only if
// the stored row still matches guard. The row is locked with FOR UPDATE for
// the duration of the check and write, so concurrent swaps on one ticket
// serialize and exactly one of them sees the expected status.
func (s *TicketStore) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, guard domain.TransitionGuard, next *domain.Ticket) (*domain.Ticket, error) {
	const lockQuery = `SELECT status, booked_by FROM tickets WHERE id = $1 FOR UPDATE`
	const updateQuery = `
UPDATE tickets SET
    status     = $2,
    booked_by  = $3,
    updated_at = COALESCE($4, now())
WHERE id = $1
RETURNING ` + ticketColumns

	var swapped *domain.Ticket
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		var (
			status   string
			bookedBy pgtype.UUID
		)
		if err := tx.QueryRow(txCtx, lockQuery, id).Scan(&status, &bookedBy); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrTicketNotFound
			}
			return apperrors.StoreUnavailable("lock ticket", err)
		}

		if !guardHolds(guard, domain.TicketStatus(status), utils.FromNullUUID(bookedBy)) {
			return apperrors.ErrStatusConflict
		}

		ticket, err := s.queryTicket(txCtx, "swap ticket status", updateQuery,
			id,
			string(next.Status),
			utils.ToNullUUID(next.BookedBy),
			utils.ToNullTime(next.UpdatedAt),
		)
		if err != nil {
			return err
		}
		swapped = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return swapped, nil
}

func guardHolds(guard domain.TransitionGuard, status domain.TicketStatus, bookedBy *uuid.UUID) bool {
	if status != guard.Status {
		return false
	}
	if guard.BookedBy == nil {
		return true
	}
	return bookedBy != nil && *bookedBy == *guard.BookedBy
}

// Ping checks database connectivity.
func (s *TicketStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return apperrors.StoreUnavailable("ping", err)
	}
	return nil
}
