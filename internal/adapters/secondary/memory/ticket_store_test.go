package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/cinema-booking-backend/internal/adapters/secondary/memory"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	apperrors "github.com/lorrc/cinema-booking-backend/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicket(t *testing.T, seat string, at time.Time) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.TicketParams{
		MovieTitle:  "Solaris",
		SessionTime: at,
		SeatNumber:  seat,
		Price:       9,
		Category:    domain.CategoryOrdinary,
	})
	require.NoError(t, err)
	return ticket
}

func TestTicketStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTicketStore()
	at := time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC)

	created, err := store.Create(ctx, newTicket(t, "B1", at))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	fetched, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)

	price := 15.0
	updated, err := store.Update(ctx, created.ID, domain.TicketPatch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 15.0, updated.Price)
	assert.Equal(t, "B1", updated.SeatNumber)

	removed, err := store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, removed.ID)

	_, err = store.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	_, err = store.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	_, err = store.Update(ctx, created.ID, domain.TicketPatch{Price: &price})
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTicketStore()

	created, err := store.Create(ctx, newTicket(t, "C3", time.Now()))
	require.NoError(t, err)
	created.MovieTitle = "changed"

	fetched, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Solaris", fetched.MovieTitle)
}

func TestTicketStore_ListOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTicketStore()
	early := time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC)
	late := early.Add(3 * time.Hour)

	for _, tc := range []struct {
		seat string
		at   time.Time
	}{{"B2", late}, {"A2", early}, {"A1", early}} {
		_, err := store.Create(ctx, newTicket(t, tc.seat, tc.at))
		require.NoError(t, err)
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"A1", "A2", "B2"}, []string{list[0].SeatNumber, list[1].SeatNumber, list[2].SeatNumber})
}

func TestTicketStore_CompareAndSwapStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTicketStore()
	owner := uuid.New()

	created, err := store.Create(ctx, newTicket(t, "D4", time.Now()))
	require.NoError(t, err)

	next := created.Clone()
	require.NoError(t, next.MarkBooked(owner))

	t.Run("guard matches", func(t *testing.T) {
		booked, err := store.CompareAndSwapStatus(ctx, created.ID, domain.TransitionGuard{Status: domain.StatusAvailable}, next)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusBooked, booked.Status)
		assert.True(t, booked.IsBookedBy(owner))
	})

	t.Run("stale status conflicts", func(t *testing.T) {
		_, err := store.CompareAndSwapStatus(ctx, created.ID, domain.TransitionGuard{Status: domain.StatusAvailable}, next)
		assert.ErrorIs(t, err, apperrors.ErrStatusConflict)
	})

	t.Run("wrong owner conflicts", func(t *testing.T) {
		other := uuid.New()
		released := created.Clone()
		_, err := store.CompareAndSwapStatus(ctx, created.ID, domain.TransitionGuard{Status: domain.StatusBooked, BookedBy: &other}, released)
		assert.ErrorIs(t, err, apperrors.ErrStatusConflict)
	})

	t.Run("missing ticket", func(t *testing.T) {
		_, err := store.CompareAndSwapStatus(ctx, uuid.New(), domain.TransitionGuard{Status: domain.StatusAvailable}, next)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.GetByID(cctx, created.ID)
		assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	user, err := repo.Create(ctx, &domain.User{Username: "Viewer", HashedPassword: "x"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Username: "viewer", HashedPassword: "y"})
	assert.ErrorIs(t, err, apperrors.ErrUserExists)

	byName, err := repo.GetByUsername(ctx, "VIEWER")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Viewer", byID.Username)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
