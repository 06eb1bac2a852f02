package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/cinema-booking-backend/internal/core/errors"
)

// Validation limits
const (
	MaxMovieTitleLength = 255
	MaxSeatNumberLength = 16
)

// TicketStatus represents the booking state of a ticket.
type TicketStatus string

const (
	StatusAvailable TicketStatus = "available"
	StatusBooked    TicketStatus = "booked"
	// StatusCancelled is terminal. No operation currently sets it.
	StatusCancelled TicketStatus = "cancelled"
)

// IsValid checks if the status is a known value
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusBooked, StatusCancelled:
		return true
	}
	return false
}

// TicketCategory selects the booking policy applied to a ticket.
type TicketCategory string

const (
	CategoryVIP      TicketCategory = "vip"
	CategoryOrdinary TicketCategory = "ordinary"
)

// IsValid checks if the category is a known value
func (c TicketCategory) IsValid() bool {
	switch c {
	case CategoryVIP, CategoryOrdinary:
		return true
	}
	return false
}

// ValidCategories returns the accepted category values
func ValidCategories() []string {
	return []string{string(CategoryVIP), string(CategoryOrdinary)}
}

// Ticket is a sellable seat for one screening.
type Ticket struct {
	ID          uuid.UUID
	MovieTitle  string
	SessionTime time.Time
	SeatNumber  string
	Price       float64
	Category    TicketCategory
	Status      TicketStatus
	BookedBy    *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// TicketParams holds the fields required to create a ticket
type TicketParams struct {
	MovieTitle  string
	SessionTime time.Time
	SeatNumber  string
	Price       float64
	Category    TicketCategory
}

// Validate validates ticket creation parameters
func (p *TicketParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	validateMovieTitle(errs, p.MovieTitle)
	validateSeatNumber(errs, p.SeatNumber)
	validateSessionTime(errs, p.SessionTime)
	validatePrice(errs, p.Price)

	if p.Category == "" {
		errs.Add("category", "Category is required")
	} else if !p.Category.IsValid() {
		errs.Add("category", "Category must be one of: "+strings.Join(ValidCategories(), ", "))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewTicket is a factory function to create a valid, available ticket.
func NewTicket(params TicketParams) (*Ticket, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Ticket{
		MovieTitle:  strings.TrimSpace(params.MovieTitle),
		SessionTime: params.SessionTime.UTC(),
		SeatNumber:  strings.TrimSpace(params.SeatNumber),
		Price:       params.Price,
		Category:    params.Category,
		Status:      StatusAvailable,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// TicketPatch is a partial edit. Nil fields are left untouched.
type TicketPatch struct {
	MovieTitle  *string
	SessionTime *time.Time
	SeatNumber  *string
	Price       *float64
	Category    *TicketCategory
}

// IsEmpty reports whether the patch changes nothing
func (p *TicketPatch) IsEmpty() bool {
	return p.MovieTitle == nil && p.SessionTime == nil && p.SeatNumber == nil &&
		p.Price == nil && p.Category == nil
}

// Validate validates the fields present in the patch
func (p *TicketPatch) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.IsEmpty() {
		errs.Add("body", "At least one field must be provided")
	}
	if p.MovieTitle != nil {
		validateMovieTitle(errs, *p.MovieTitle)
	}
	if p.SeatNumber != nil {
		validateSeatNumber(errs, *p.SeatNumber)
	}
	if p.SessionTime != nil {
		validateSessionTime(errs, *p.SessionTime)
	}
	if p.Price != nil {
		validatePrice(errs, *p.Price)
	}
	if p.Category != nil {
		errs.Add("category", apperrors.ErrCategoryImmutable.Error())
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Normalize trims text fields and converts the session time to UTC.
func (p *TicketPatch) Normalize() {
	if p.MovieTitle != nil {
		v := strings.TrimSpace(*p.MovieTitle)
		p.MovieTitle = &v
	}
	if p.SeatNumber != nil {
		v := strings.TrimSpace(*p.SeatNumber)
		p.SeatNumber = &v
	}
	if p.SessionTime != nil {
		v := p.SessionTime.UTC()
		p.SessionTime = &v
	}
}

// Apply merges the patch into the ticket.
func (t *Ticket) Apply(p TicketPatch) {
	if p.MovieTitle != nil {
		t.MovieTitle = *p.MovieTitle
	}
	if p.SessionTime != nil {
		t.SessionTime = *p.SessionTime
	}
	if p.SeatNumber != nil {
		t.SeatNumber = *p.SeatNumber
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	t.touch()
}

// Clone returns a deep copy of the ticket.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.BookedBy != nil {
		id := *t.BookedBy
		c.BookedBy = &id
	}
	if t.UpdatedAt != nil {
		ts := *t.UpdatedAt
		c.UpdatedAt = &ts
	}
	return &c
}

// MarkBooked moves an available ticket to booked for the given user.
func (t *Ticket) MarkBooked(userID uuid.UUID) error {
	switch t.Status {
	case StatusAvailable:
	case StatusBooked:
		return apperrors.ErrAlreadyBooked
	default:
		return apperrors.ErrTicketNotAvailable
	}

	t.Status = StatusBooked
	t.BookedBy = &userID
	t.touch()
	return nil
}

// CanRelease checks that userID holds the booking on this ticket.
func (t *Ticket) CanRelease(userID uuid.UUID) error {
	if t.Status != StatusBooked {
		return apperrors.ErrNotBooked
	}
	if !t.IsBookedBy(userID) {
		return apperrors.ErrNotOwner
	}
	return nil
}

// MarkReleased returns a booked ticket to available.
func (t *Ticket) MarkReleased(userID uuid.UUID) error {
	if err := t.CanRelease(userID); err != nil {
		return err
	}

	t.Status = StatusAvailable
	t.BookedBy = nil
	t.touch()
	return nil
}

// IsBookedBy reports whether userID holds the booking
func (t *Ticket) IsBookedBy(userID uuid.UUID) bool {
	return t.BookedBy != nil && *t.BookedBy == userID
}

// HasConsistentBooking checks that BookedBy is set exactly when the ticket is booked.
func (t *Ticket) HasConsistentBooking() bool {
	return (t.BookedBy != nil) == (t.Status == StatusBooked)
}

func (t *Ticket) touch() {
	now := time.Now().UTC()
	t.UpdatedAt = &now
}

func validateMovieTitle(errs *apperrors.ValidationErrors, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		errs.Add("movieTitle", "Movie title is required")
	} else if len(title) > MaxMovieTitleLength {
		errs.Add("movieTitle", "Movie title must be 255 characters or less")
	}
}

func validateSeatNumber(errs *apperrors.ValidationErrors, seat string) {
	seat = strings.TrimSpace(seat)
	if seat == "" {
		errs.Add("seatNumber", "Seat number is required")
	} else if len(seat) > MaxSeatNumberLength {
		errs.Add("seatNumber", "Seat number must be 16 characters or less")
	}
}

func validateSessionTime(errs *apperrors.ValidationErrors, at time.Time) {
	if at.IsZero() {
		errs.Add("sessionTime", "Session time is required")
	}
}

func validatePrice(errs *apperrors.ValidationErrors, price float64) {
	if price < 0 {
		errs.Add("price", "Price must not be negative")
	}
}

// TransitionGuard is the precondition of a conditional status write.
// A nil BookedBy means the owner is not checked.
type TransitionGuard struct {
	Status   TicketStatus
	BookedBy *uuid.UUID
}

// Matches reports whether the ticket satisfies the guard.
func (g TransitionGuard) Matches(t *Ticket) bool {
	if t.Status != g.Status {
		return false
	}
	if g.BookedBy != nil && !t.IsBookedBy(*g.BookedBy) {
		return false
	}
	return true
}

