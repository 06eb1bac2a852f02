package services

import (
	"context"
	"fmt"

	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

// ReceiptService turns booking changes into notifications for the user who
// booked or cancelled. It is attached to the change notifier as a subscriber.
type ReceiptService struct {
	notifier ports.Notifier
}

var _ ports.ChangeHandler = (*ReceiptService)(nil)

func NewReceiptService(notifier ports.Notifier) *ReceiptService {
	return &ReceiptService{notifier: notifier}
}

// HandleEvent implements ports.ChangeHandler.
func (s *ReceiptService) HandleEvent(ctx context.Context, event domain.ChangeEvent) error {
	if event.ActorID == nil {
		return nil
	}

	snapshot, ok := event.Payload.(domain.TicketSnapshot)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	var subject, message string
	switch event.Type {
	case domain.EventTicketBooked:
		subject = fmt.Sprintf("Booking confirmed: %s, seat %s", snapshot.MovieTitle, snapshot.SeatNumber)
		message = fmt.Sprintf("You booked seat %s for '%s' at %s. Price: %.2f.",
			snapshot.SeatNumber, snapshot.MovieTitle, snapshot.SessionTime, snapshot.Price)
	case domain.EventTicketCancelled:
		subject = fmt.Sprintf("Booking cancelled: %s, seat %s", snapshot.MovieTitle, snapshot.SeatNumber)
		message = fmt.Sprintf("Your booking of seat %s for '%s' at %s was cancelled.",
			snapshot.SeatNumber, snapshot.MovieTitle, snapshot.SessionTime)
	default:
		return nil
	}

	s.notifier.Notify(ctx, ports.NotificationParams{
		RecipientUserID: *event.ActorID,
		Subject:         subject,
		Message:         message,
		TicketID:        event.TicketID,
	})
	return nil
}
