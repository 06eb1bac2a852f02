package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	apperrors "github.com/lorrc/cinema-booking-backend/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() domain.TicketParams {
	return domain.TicketParams{
		MovieTitle:  "Metropolis",
		SessionTime: time.Date(2026, 11, 1, 19, 30, 0, 0, time.UTC),
		SeatNumber:  "A12",
		Price:       12.5,
		Category:    domain.CategoryOrdinary,
	}
}

func TestTicketCategory_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		category domain.TicketCategory
		want     bool
	}{
		{"vip is valid", domain.CategoryVIP, true},
		{"ordinary is valid", domain.CategoryOrdinary, true},
		{"empty is invalid", domain.TicketCategory(""), false},
		{"uppercase is invalid", domain.TicketCategory("VIP"), false},
		{"balcony is invalid", domain.TicketCategory("balcony"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.category.IsValid())
		})
	}
}

func TestTicketStatus_IsValid(t *testing.T) {
	assert.True(t, domain.StatusAvailable.IsValid())
	assert.True(t, domain.StatusBooked.IsValid())
	assert.True(t, domain.StatusCancelled.IsValid())
	assert.False(t, domain.TicketStatus("reserved").IsValid())
}

func TestNewTicket(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(p *domain.TicketParams)
		errorFields []string
	}{
		{"valid", func(p *domain.TicketParams) {}, nil},
		{"free ticket", func(p *domain.TicketParams) { p.Price = 0 }, nil},
		{"empty title", func(p *domain.TicketParams) { p.MovieTitle = "   " }, []string{"movieTitle"}},
		{"long title", func(p *domain.TicketParams) { p.MovieTitle = strings.Repeat("x", 256) }, []string{"movieTitle"}},
		{"empty seat", func(p *domain.TicketParams) { p.SeatNumber = "" }, []string{"seatNumber"}},
		{"long seat", func(p *domain.TicketParams) { p.SeatNumber = strings.Repeat("9", 17) }, []string{"seatNumber"}},
		{"missing session", func(p *domain.TicketParams) { p.SessionTime = time.Time{} }, []string{"sessionTime"}},
		{"negative price", func(p *domain.TicketParams) { p.Price = -1 }, []string{"price"}},
		{"missing category", func(p *domain.TicketParams) { p.Category = "" }, []string{"category"}},
		{"unknown category", func(p *domain.TicketParams) { p.Category = "balcony" }, []string{"category"}},
		{"several fields", func(p *domain.TicketParams) {
			p.MovieTitle = ""
			p.Price = -3
		}, []string{"movieTitle", "price"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)

			ticket, err := domain.NewTicket(params)
			if len(tt.errorFields) == 0 {
				require.NoError(t, err)
				assert.Equal(t, domain.StatusAvailable, ticket.Status)
				assert.Nil(t, ticket.BookedBy)
				assert.True(t, ticket.HasConsistentBooking())
				return
			}

			require.Error(t, err)
			assert.Nil(t, ticket)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			var validationErr *apperrors.ValidationErrors
			require.ErrorAs(t, err, &validationErr)
			for _, field := range tt.errorFields {
				assert.Contains(t, validationErr.Errors, field)
			}
		})
	}
}

func TestTicketPatch_Validate(t *testing.T) {
	title := "Nosferatu"
	negative := -2.0
	category := domain.CategoryVIP

	t.Run("empty patch is rejected", func(t *testing.T) {
		err := (&domain.TicketPatch{}).Validate()
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("partial patch is accepted", func(t *testing.T) {
		assert.NoError(t, (&domain.TicketPatch{MovieTitle: &title}).Validate())
	})

	t.Run("negative price is rejected", func(t *testing.T) {
		assert.ErrorIs(t, (&domain.TicketPatch{Price: &negative}).Validate(), apperrors.ErrValidation)
	})

	t.Run("category change is rejected", func(t *testing.T) {
		err := (&domain.TicketPatch{Category: &category}).Validate()
		var validationErr *apperrors.ValidationErrors
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Errors, "category")
	})
}

func TestTicket_Apply(t *testing.T) {
	ticket, err := domain.NewTicket(validParams())
	require.NoError(t, err)

	title := "  Nosferatu  "
	price := 20.0
	patch := domain.TicketPatch{MovieTitle: &title, Price: &price}
	patch.Normalize()
	ticket.Apply(patch)

	assert.Equal(t, "Nosferatu", ticket.MovieTitle)
	assert.Equal(t, 20.0, ticket.Price)
	assert.Equal(t, "A12", ticket.SeatNumber)
	assert.Equal(t, domain.CategoryOrdinary, ticket.Category)
	assert.NotNil(t, ticket.UpdatedAt)
}

func TestTicket_StateTransitions(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	t.Run("book available ticket", func(t *testing.T) {
		ticket, _ := domain.NewTicket(validParams())
		require.NoError(t, ticket.MarkBooked(owner))
		assert.Equal(t, domain.StatusBooked, ticket.Status)
		assert.True(t, ticket.IsBookedBy(owner))
		assert.True(t, ticket.HasConsistentBooking())
	})

	t.Run("book booked ticket", func(t *testing.T) {
		ticket, _ := domain.NewTicket(validParams())
		require.NoError(t, ticket.MarkBooked(owner))
		assert.ErrorIs(t, ticket.MarkBooked(other), apperrors.ErrAlreadyBooked)
		assert.True(t, ticket.IsBookedBy(owner))
	})

	t.Run("book cancelled ticket", func(t *testing.T) {
		ticket, _ := domain.NewTicket(validParams())
		ticket.Status = domain.StatusCancelled
		assert.ErrorIs(t, ticket.MarkBooked(owner), apperrors.ErrTicketNotAvailable)
	})

	t.Run("release by owner", func(t *testing.T) {
		ticket, _ := domain.NewTicket(validParams())
		require.NoError(t, ticket.MarkBooked(owner))
		require.NoError(t, ticket.MarkReleased(owner))
		assert.Equal(t, domain.StatusAvailable, ticket.Status)
		assert.Nil(t, ticket.BookedBy)
	})

	t.Run("release by someone else", func(t *testing.T) {
		ticket, _ := domain.NewTicket(validParams())
		require.NoError(t, ticket.MarkBooked(owner))
		assert.ErrorIs(t, ticket.MarkReleased(other), apperrors.ErrNotOwner)
		assert.Equal(t, domain.StatusBooked, ticket.Status)
	})

	t.Run("release unbooked ticket", func(t *testing.T) {
		ticket, _ := domain.NewTicket(validParams())
		assert.ErrorIs(t, ticket.MarkReleased(owner), apperrors.ErrNotBooked)
	})
}

func TestTicket_Clone(t *testing.T) {
	owner := uuid.New()
	ticket, _ := domain.NewTicket(validParams())
	require.NoError(t, ticket.MarkBooked(owner))

	clone := ticket.Clone()
	*clone.BookedBy = uuid.New()
	clone.Status = domain.StatusAvailable

	assert.Equal(t, owner, *ticket.BookedBy)
	assert.Equal(t, domain.StatusBooked, ticket.Status)
}

func TestChangeEvent_JSON(t *testing.T) {
	ticket, _ := domain.NewTicket(validParams())
	ticket.ID = uuid.New()

	t.Run("snapshot payload", func(t *testing.T) {
		raw, err := json.Marshal(domain.NewBookingEvent(domain.EventTicketBooked, ticket, uuid.New()))
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, "TICKET_BOOKED", decoded["type"])
		assert.NotContains(t, decoded, "ActorID")
		data := decoded["data"].(map[string]interface{})
		assert.Equal(t, ticket.ID.String(), data["id"])
		assert.Equal(t, "ordinary", data["category"])
		assert.Equal(t, "2026-11-01T19:30:00Z", data["sessionTime"])
	})

	t.Run("deleted payload carries only the id", func(t *testing.T) {
		raw, err := json.Marshal(domain.NewTicketDeletedEvent(ticket.ID))
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"data":{"id":"`+ticket.ID.String()+`"}`)
	})
}

func TestEventType_Kind(t *testing.T) {
	assert.Equal(t, "created", domain.EventTicketCreated.Kind())
	assert.Equal(t, "cancelled", domain.EventTicketCancelled.Kind())
	assert.Equal(t, "unknown", domain.EventType("X").Kind())
}
