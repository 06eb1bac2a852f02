package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the kind of ticket change being broadcast.
type EventType string

const (
	EventTicketCreated   EventType = "TICKET_CREATED"
	EventTicketUpdated   EventType = "TICKET_UPDATED"
	EventTicketDeleted   EventType = "TICKET_DELETED"
	EventTicketBooked    EventType = "TICKET_BOOKED"
	EventTicketCancelled EventType = "TICKET_CANCELLED"
)

// ChangeEvent is emitted after a ticket mutation has been durably written.
type ChangeEvent struct {
	Type       EventType   `json:"type"`
	TicketID   uuid.UUID   `json:"ticketId"`
	Payload    interface{} `json:"data"`
	OccurredAt time.Time   `json:"occurredAt"`
	// ActorID is the user that booked or cancelled. Not part of the wire shape.
	ActorID *uuid.UUID `json:"-"`
}

// NewTicketEvent builds an event whose payload is the ticket snapshot.
func NewTicketEvent(eventType EventType, ticket *Ticket) ChangeEvent {
	return ChangeEvent{
		Type:       eventType,
		TicketID:   ticket.ID,
		Payload:    NewTicketSnapshot(ticket),
		OccurredAt: time.Now().UTC(),
	}
}

// NewBookingEvent builds a booked/cancelled event carrying the acting user.
func NewBookingEvent(eventType EventType, ticket *Ticket, actorID uuid.UUID) ChangeEvent {
	event := NewTicketEvent(eventType, ticket)
	event.ActorID = &actorID
	return event
}

// NewTicketDeletedEvent builds a deletion event. Its payload only carries the id.
func NewTicketDeletedEvent(ticketID uuid.UUID) ChangeEvent {
	return ChangeEvent{
		Type:       EventTicketDeleted,
		TicketID:   ticketID,
		Payload:    DeletedTicketPayload{ID: ticketID.String()},
		OccurredAt: time.Now().UTC(),
	}
}

// Kind returns the lowercase suffix of the event type, e.g. "booked".
func (t EventType) Kind() string {
	switch t {
	case EventTicketCreated:
		return "created"
	case EventTicketUpdated:
		return "updated"
	case EventTicketDeleted:
		return "deleted"
	case EventTicketBooked:
		return "booked"
	case EventTicketCancelled:
		return "cancelled"
	}
	return "unknown"
}
