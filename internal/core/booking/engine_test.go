package booking_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/cinema-booking-backend/internal/adapters/secondary/memory"
	"github.com/lorrc/cinema-booking-backend/internal/core/booking"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	apperrors "github.com/lorrc/cinema-booking-backend/internal/core/errors"
	"github.com/lorrc/cinema-booking-backend/internal/core/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedTicket(t *testing.T, store *memory.TicketStore, category domain.TicketCategory) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.TicketParams{
		MovieTitle:  "Stalker",
		SessionTime: time.Date(2026, 11, 20, 21, 0, 0, 0, time.UTC),
		SeatNumber:  "E7",
		Price:       11,
		Category:    domain.CategoryOrdinary,
	})
	require.NoError(t, err)
	ticket.Category = category
	created, err := store.Create(context.Background(), ticket)
	require.NoError(t, err)
	return created
}

func TestEngine_Book(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	for _, category := range []domain.TicketCategory{domain.CategoryOrdinary, domain.CategoryVIP} {
		t.Run("books available "+string(category)+" ticket", func(t *testing.T) {
			store := memory.NewTicketStore()
			engine := booking.NewEngine(store, discardLogger())
			ticket := seedTicket(t, store, category)

			booked, err := engine.Book(ctx, ticket.ID, user)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusBooked, booked.Status)
			assert.True(t, booked.IsBookedBy(user))

			stored, err := store.GetByID(ctx, ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, booked.Status, stored.Status)
		})
	}

	t.Run("already booked", func(t *testing.T) {
		store := memory.NewTicketStore()
		engine := booking.NewEngine(store, discardLogger())
		ticket := seedTicket(t, store, domain.CategoryOrdinary)

		_, err := engine.Book(ctx, ticket.ID, user)
		require.NoError(t, err)

		_, err = engine.Book(ctx, ticket.ID, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrAlreadyBooked)

		stored, _ := store.GetByID(ctx, ticket.ID)
		assert.True(t, stored.IsBookedBy(user))
	})

	t.Run("missing ticket", func(t *testing.T) {
		engine := booking.NewEngine(memory.NewTicketStore(), discardLogger())
		_, err := engine.Book(ctx, uuid.New(), user)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})

	t.Run("unsupported category", func(t *testing.T) {
		store := memory.NewTicketStore()
		engine := booking.NewEngine(store, discardLogger())
		ticket := seedTicket(t, store, domain.TicketCategory("balcony"))

		_, err := engine.Book(ctx, ticket.ID, user)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedCategory)
	})

	t.Run("registered strategy extends categories", func(t *testing.T) {
		store := memory.NewTicketStore()
		engine := booking.NewEngine(store, discardLogger())
		engine.RegisterStrategy("balcony", booking.OrdinaryStrategy{})
		ticket := seedTicket(t, store, domain.TicketCategory("balcony"))

		booked, err := engine.Book(ctx, ticket.ID, user)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusBooked, booked.Status)
	})

	t.Run("strategy rejection leaves ticket untouched", func(t *testing.T) {
		store := memory.NewTicketStore()
		engine := booking.NewEngine(store, discardLogger())
		refused := errors.New("sold out for members only")
		engine.RegisterStrategy(domain.CategoryVIP, booking.StrategyFunc(func(*domain.Ticket, uuid.UUID) (*domain.Ticket, error) {
			return nil, refused
		}))
		ticket := seedTicket(t, store, domain.CategoryVIP)

		_, err := engine.Book(ctx, ticket.ID, user)
		assert.ErrorIs(t, err, refused)

		stored, _ := store.GetByID(ctx, ticket.ID)
		assert.Equal(t, domain.StatusAvailable, stored.Status)
	})
}

func TestEngine_ConcurrentBooking(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTicketStore()
	engine := booking.NewEngine(store, discardLogger())
	ticket := seedTicket(t, store, domain.CategoryVIP)

	const contenders = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		losses  int
	)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := uuid.New()
			_, err := engine.Book(ctx, ticket.ID, user)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, user)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrAlreadyBooked)
			losses++
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, contenders-1, losses)

	stored, err := store.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsBookedBy(winners[0]))
}

func TestEngine_ReleaseBooking(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("owner releases", func(t *testing.T) {
		store := memory.NewTicketStore()
		engine := booking.NewEngine(store, discardLogger())
		ticket := seedTicket(t, store, domain.CategoryOrdinary)
		_, err := engine.Book(ctx, ticket.ID, owner)
		require.NoError(t, err)

		released, err := engine.ReleaseBooking(ctx, ticket.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAvailable, released.Status)
		assert.Nil(t, released.BookedBy)

		rebooked, err := engine.Book(ctx, ticket.ID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusBooked, rebooked.Status)
	})

	t.Run("other user is rejected", func(t *testing.T) {
		store := memory.NewTicketStore()
		engine := booking.NewEngine(store, discardLogger())
		ticket := seedTicket(t, store, domain.CategoryOrdinary)
		_, err := engine.Book(ctx, ticket.ID, owner)
		require.NoError(t, err)

		_, err = engine.ReleaseBooking(ctx, ticket.ID, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrNotOwner)

		stored, _ := store.GetByID(ctx, ticket.ID)
		assert.True(t, stored.IsBookedBy(owner))
	})

	t.Run("not booked", func(t *testing.T) {
		store := memory.NewTicketStore()
		engine := booking.NewEngine(store, discardLogger())
		ticket := seedTicket(t, store, domain.CategoryOrdinary)

		_, err := engine.ReleaseBooking(ctx, ticket.ID, owner)
		assert.ErrorIs(t, err, apperrors.ErrNotBooked)
	})

	t.Run("missing ticket", func(t *testing.T) {
		engine := booking.NewEngine(memory.NewTicketStore(), discardLogger())
		_, err := engine.ReleaseBooking(ctx, uuid.New(), owner)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})
}

func TestEngine_LostRace(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	rival := uuid.New()

	available, err := domain.NewTicket(domain.TicketParams{
		MovieTitle:  "Mirror",
		SessionTime: time.Now(),
		SeatNumber:  "F1",
		Category:    domain.CategoryOrdinary,
	})
	require.NoError(t, err)
	available.ID = uuid.New()

	t.Run("book conflict maps to already booked", func(t *testing.T) {
		store := mocks.NewMockTicketStore()
		engine := booking.NewEngine(store, discardLogger())

		winner := available.Clone()
		require.NoError(t, winner.MarkBooked(rival))

		store.On("GetByID", ctx, available.ID).Return(available, nil).Once()
		store.On("CompareAndSwapStatus", ctx, available.ID, domain.TransitionGuard{Status: domain.StatusAvailable}, mock.Anything).
			Return(nil, apperrors.ErrStatusConflict).Once()
		store.On("GetByID", ctx, available.ID).Return(winner, nil).Once()

		_, err := engine.Book(ctx, available.ID, user)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyBooked)
		store.AssertExpectations(t)
	})

	t.Run("book conflict with deleted ticket maps to not found", func(t *testing.T) {
		store := mocks.NewMockTicketStore()
		engine := booking.NewEngine(store, discardLogger())

		store.On("GetByID", ctx, available.ID).Return(available, nil).Once()
		store.On("CompareAndSwapStatus", ctx, available.ID, mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrStatusConflict).Once()
		store.On("GetByID", ctx, available.ID).Return(nil, apperrors.ErrTicketNotFound).Once()

		_, err := engine.Book(ctx, available.ID, user)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})

	t.Run("release conflict maps to not owner", func(t *testing.T) {
		store := mocks.NewMockTicketStore()
		engine := booking.NewEngine(store, discardLogger())

		mine := available.Clone()
		require.NoError(t, mine.MarkBooked(user))
		theirs := available.Clone()
		require.NoError(t, theirs.MarkBooked(rival))

		store.On("GetByID", ctx, available.ID).Return(mine, nil).Once()
		store.On("CompareAndSwapStatus", ctx, available.ID, domain.TransitionGuard{Status: domain.StatusBooked, BookedBy: &user}, mock.Anything).
			Return(nil, apperrors.ErrStatusConflict).Once()
		store.On("GetByID", ctx, available.ID).Return(theirs, nil).Once()

		_, err := engine.ReleaseBooking(ctx, available.ID, user)
		assert.ErrorIs(t, err, apperrors.ErrNotOwner)
	})

	t.Run("store failure passes through", func(t *testing.T) {
		store := mocks.NewMockTicketStore()
		engine := booking.NewEngine(store, discardLogger())
		down := apperrors.StoreUnavailable("get ticket", errors.New("connection refused"))

		store.On("GetByID", ctx, available.ID).Return(nil, down).Once()

		_, err := engine.Book(ctx, available.ID, user)
		assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	})
}
