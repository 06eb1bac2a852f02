package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("action forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPasswordTooWeak    = errors.New("password does not meet security requirements")

	// Ticket validation
	ErrValidation          = errors.New("validation failed")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrCategoryImmutable   = errors.New("ticket category cannot be changed")
	ErrUnsupportedCategory = errors.New("unsupported ticket category")

	// Booking state machine
	ErrBookingFailed      = errors.New("booking failed")
	ErrAlreadyBooked      = errors.New("ticket is already booked")
	ErrNotBooked          = errors.New("ticket is not booked")
	ErrNotOwner           = errors.New("ticket is booked by another user")
	ErrTicketNotAvailable = errors.New("ticket is not available for booking")

	// Storage
	ErrStoreUnavailable = errors.New("ticket store unavailable")
	ErrStatusConflict   = errors.New("ticket status changed concurrently")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// BookingFailed wraps a state-machine rejection so callers can match either
// ErrBookingFailed or the specific reason with errors.Is.
func BookingFailed(reason error) error {
	return fmt.Errorf("%w: %w", ErrBookingFailed, reason)
}

// Forbidden wraps an ownership failure as ErrForbidden, keeping the reason.
func Forbidden(reason error) error {
	return fmt.Errorf("%w: %w", ErrForbidden, reason)
}

// StoreUnavailable wraps a storage driver failure.
func StoreUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}

// Is lets errors.Is(err, ErrValidation) match field-level failures.
func (v *ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}
