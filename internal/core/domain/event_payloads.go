package domain

import (
	"time"
)

// TicketSnapshot matches the API response shape for tickets.
type TicketSnapshot struct {
	ID          string  `json:"id"`
	MovieTitle  string  `json:"movieTitle"`
	SessionTime string  `json:"sessionTime"`
	SeatNumber  string  `json:"seatNumber"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	BookedBy    *string `json:"bookedBy"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
}

// DeletedTicketPayload is the payload of a TICKET_DELETED event.
type DeletedTicketPayload struct {
	ID string `json:"id"`
}

// NewTicketSnapshot builds a ticket snapshot from a domain ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	var bookedBy *string
	if ticket.BookedBy != nil {
		value := ticket.BookedBy.String()
		bookedBy = &value
	}

	var updatedAt *string
	if ticket.UpdatedAt != nil {
		value := ticket.UpdatedAt.UTC().Format(time.RFC3339)
		updatedAt = &value
	}

	return TicketSnapshot{
		ID:          ticket.ID.String(),
		MovieTitle:  ticket.MovieTitle,
		SessionTime: ticket.SessionTime.UTC().Format(time.RFC3339),
		SeatNumber:  ticket.SeatNumber,
		Price:       ticket.Price,
		Category:    string(ticket.Category),
		Status:      string(ticket.Status),
		BookedBy:    bookedBy,
		CreatedAt:   ticket.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   updatedAt,
	}
}

// NewTicketSnapshots converts a slice of tickets.
func NewTicketSnapshots(tickets []*Ticket) []TicketSnapshot {
	out := make([]TicketSnapshot, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketSnapshot(t))
	}
	return out
}
