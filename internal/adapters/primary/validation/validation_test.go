package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lorrc/cinema-booking-backend/internal/core/errors"
)

func TestValidatorCollectsFieldErrors(t *testing.T) {
	v := NewValidator()
	v.Required("movieTitle", "  ").
		MaxLength("seatNumber", strings.Repeat("A", 17), 16).
		NonNegative("price", -1).
		OneOf("category", "gold", []string{"vip", "ordinary"}).
		UUID("id", "nope")

	require.True(t, v.HasErrors())
	errs := v.Errors().Errors
	assert.Contains(t, errs, "movieTitle")
	assert.Contains(t, errs, "seatNumber")
	assert.Contains(t, errs, "price")
	assert.Contains(t, errs, "category")
	assert.Contains(t, errs, "id")
	assert.ErrorIs(t, v.Err(), apperrors.ErrValidation)
}

func TestValidatorPassesValidInput(t *testing.T) {
	v := NewValidator()
	v.Required("movieTitle", "Alien").
		NonNegative("price", 0).
		OneOf("category", "", []string{"vip"})

	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Err())
}

func TestTimestamp(t *testing.T) {
	v := NewValidator()

	parsed := v.Timestamp("sessionTime", "2026-05-01T19:30:00+02:00")
	assert.Equal(t, 17, parsed.UTC().Hour())
	assert.False(t, v.HasErrors())

	assert.True(t, v.Timestamp("sessionTime", "").IsZero())
	assert.False(t, v.HasErrors())

	v.Timestamp("sessionTime", "tomorrow")
	assert.Contains(t, v.Errors().Errors, "sessionTime")
}

func TestDecodeAndValidate(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	t.Run("valid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
		got, err := DecodeAndValidate[body](req)
		require.NoError(t, err)
		assert.Equal(t, "x", got.Name)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		_, err := DecodeAndValidate[body](req)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
		assert.Equal(t, "Request body is required", appErr.Message)
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		_, err := DecodeAndValidate[body](req)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "BAD_REQUEST", appErr.Code)
	})
}
