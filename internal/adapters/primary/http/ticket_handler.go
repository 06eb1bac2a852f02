package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/lorrc/cinema-booking-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/cinema-booking-backend/internal/adapters/primary/validation"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	ticketService ports.TicketService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	ticketService ports.TicketService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "ticket"),
	}
}

// RegisterRoutes sets up the routing for all ticket endpoints. Reads are
// public; mutations go through authenticate, and booking changes also go
// through bookingLimit when it is not nil.
func (h *TicketHandler) RegisterRoutes(r chi.Router, authenticate, bookingLimit func(http.Handler) http.Handler) {
	r.Get("/", h.HandleListTickets)
	r.Get("/{ticketID}", h.HandleGetTicket)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", h.HandleCreateTicket)
		r.Put("/{ticketID}", h.HandleUpdateTicket)
		r.Delete("/{ticketID}", h.HandleDeleteTicket)

		r.Group(func(r chi.Router) {
			if bookingLimit != nil {
				r.Use(bookingLimit)
			}
			r.Post("/{ticketID}/book", h.HandleBookTicket)
			r.Delete("/{ticketID}/book", h.HandleCancelBooking)
		})
	})
}

// --- Request/Response DTOs ---

// CreateTicketRequest defines the expected JSON body for creating a ticket
type CreateTicketRequest struct {
	MovieTitle  string   `json:"movieTitle"`
	SessionTime string   `json:"sessionTime"`
	SeatNumber  string   `json:"seatNumber"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
}

// Validate validates the create ticket request and converts it to service params
func (r *CreateTicketRequest) Validate() (ports.CreateTicketParams, error) {
	v := validation.NewValidator()

	v.Required("movieTitle", r.MovieTitle).
		MaxLength("movieTitle", r.MovieTitle, domain.MaxMovieTitleLength)

	v.Required("seatNumber", r.SeatNumber).
		MaxLength("seatNumber", r.SeatNumber, domain.MaxSeatNumberLength)

	v.Required("sessionTime", r.SessionTime)
	sessionTime := v.Timestamp("sessionTime", r.SessionTime)

	v.Custom("price", r.Price != nil, "This field is required")
	if r.Price != nil {
		v.NonNegative("price", *r.Price)
	}

	v.Required("category", r.Category).
		OneOf("category", r.Category, domain.ValidCategories())

	if err := v.Err(); err != nil {
		return ports.CreateTicketParams{}, err
	}

	return ports.CreateTicketParams{
		MovieTitle:  r.MovieTitle,
		SessionTime: sessionTime,
		SeatNumber:  r.SeatNumber,
		Price:       *r.Price,
		Category:    domain.TicketCategory(r.Category),
	}, nil
}

// UpdateTicketRequest defines the expected JSON body for editing a ticket.
// Omitted fields are left unchanged.
type UpdateTicketRequest struct {
	MovieTitle  *string  `json:"movieTitle"`
	SessionTime *string  `json:"sessionTime"`
	SeatNumber  *string  `json:"seatNumber"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
}

// Patch parses the request into a ticket patch. Domain rules (including the
// immutable category) are checked by the service.
func (r *UpdateTicketRequest) Patch() (domain.TicketPatch, error) {
	v := validation.NewValidator()
	patch := domain.TicketPatch{
		MovieTitle: r.MovieTitle,
		SeatNumber: r.SeatNumber,
		Price:      r.Price,
	}

	if r.SessionTime != nil {
		v.Required("sessionTime", *r.SessionTime)
		sessionTime := v.Timestamp("sessionTime", *r.SessionTime)
		patch.SessionTime = &sessionTime
	}

	if r.Category != nil {
		category := domain.TicketCategory(*r.Category)
		patch.Category = &category
	}

	if err := v.Err(); err != nil {
		return domain.TicketPatch{}, err
	}
	return patch, nil
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO = domain.TicketSnapshot

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	return domain.NewTicketSnapshot(ticket)
}

func toTicketDTOs(tickets []*domain.Ticket) []TicketDTO {
	return domain.NewTicketSnapshots(tickets)
}

// --- Handlers ---

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.ticketService.ListTickets(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toTicketDTOs(tickets))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleCreateTicket handles POST /tickets
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params, err := req.Validate()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.CreateTicket(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket created",
		"ticket_id", ticket.ID,
		"seat_number", ticket.SeatNumber,
	)

	WriteCreated(w, toTicketDTO(ticket))
}

// HandleUpdateTicket handles PUT /tickets/{ticketID}
func (h *TicketHandler) HandleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	patch, err := req.Patch()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.UpdateTicket(r.Context(), ticketID, patch)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket updated", "ticket_id", ticketID)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleDeleteTicket handles DELETE /tickets/{ticketID}
func (h *TicketHandler) HandleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.DeleteTicket(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket deleted", "ticket_id", ticketID)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleBookTicket handles POST /tickets/{ticketID}/book
func (h *TicketHandler) HandleBookTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	userID := mw.GetUserID(r.Context())
	ticket, err := h.ticketService.BookTicket(r.Context(), ticketID, userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket booked",
		"ticket_id", ticketID,
		"category", ticket.Category,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleCancelBooking handles DELETE /tickets/{ticketID}/book
func (h *TicketHandler) HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	userID := mw.GetUserID(r.Context())
	ticket, err := h.ticketService.CancelBooking(r.Context(), ticketID, userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "booking cancelled", "ticket_id", ticketID)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// --- Helper methods ---

// parseTicketID extracts and validates the ticket ID from the URL
func parseTicketID(r *http.Request) (uuid.UUID, error) {
	ticketID, err := uuid.Parse(chi.URLParam(r, "ticketID"))
	if err != nil {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return uuid.Nil, v.Errors()
	}
	return ticketID, nil
}
