package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	"github.com/lorrc/cinema-booking-backend/internal/core/notifier"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Default time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Control replies (PONG, acks) queued per client.
	controlBuffer = 16
)

// Client message types
const (
	MessageSubscribe   = "SUBSCRIBE_TO_TICKET"
	MessageUnsubscribe = "UNSUBSCRIBE_FROM_TICKET"
	MessagePing        = "PING"
)

// Server control message types
const (
	MessagePong         = "PONG"
	MessageSubscribed   = "SUBSCRIBED"
	MessageUnsubscribed = "UNSUBSCRIBED"
	MessageError        = "ERROR"
)

// Broker is the part of the change notifier a client needs.
type Broker interface {
	SubscribeBuffered(name string, buffer int) *notifier.Subscription
	Unsubscribe(sub *notifier.Subscription)
}

// Options tunes a client connection.
type Options struct {
	Buffer       int
	PingInterval time.Duration
	PongWait     time.Duration
}

// Client is a middleman between the websocket connection and the change
// notifier. Without ticket filters it receives every change event; after
// SUBSCRIBE_TO_TICKET it only receives events for the selected tickets.
type Client struct {
	conn   *websocket.Conn
	broker Broker
	sub    *notifier.Subscription

	// UserID is uuid.Nil for anonymous viewers.
	UserID uuid.UUID

	control chan ControlMessage

	// mu protects filter
	mu     sync.RWMutex
	filter map[uuid.UUID]struct{}

	pingPeriod time.Duration
	pongWait   time.Duration

	logger *slog.Logger
}

// NewClient creates a client and registers it with the broker. Events
// published from this point on are queued for the connection.
func NewClient(conn *websocket.Conn, broker Broker, userID uuid.UUID, opts Options, logger *slog.Logger) *Client {
	pongWait := opts.PongWait
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	pingPeriod := opts.PingInterval
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		// Must be less than pongWait.
		pingPeriod = (pongWait * 9) / 10
	}

	name := "ws:anonymous"
	if userID != uuid.Nil {
		name = "ws:" + userID.String()
	}

	return &Client{
		conn:       conn,
		broker:     broker,
		sub:        broker.SubscribeBuffered(name, opts.Buffer),
		UserID:     userID,
		control:    make(chan ControlMessage, controlBuffer),
		filter:     make(map[uuid.UUID]struct{}),
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
		logger:     logger.With("component", "websocket_client", "user_id", userID.String()),
	}
}

// Serve starts the read and write pumps in their own goroutines.
func (c *Client) Serve() {
	go c.WritePump()
	go c.ReadPump()
}

// AddSubscription restricts delivery to the given ticket (plus any others
// already selected).
func (c *Client) AddSubscription(ticketID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter[ticketID] = struct{}{}
}

// RemoveSubscription removes a ticket from the filter. An empty filter
// means every event is delivered again.
func (c *Client) RemoveSubscription(ticketID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.filter, ticketID)
}

// Wants reports whether the event passes the client's ticket filter.
func (c *Client) Wants(event domain.ChangeEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.filter) == 0 {
		return true
	}
	_, ok := c.filter[event.TicketID]
	return ok
}

// ReadPump pumps messages from the websocket connection to the client.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.broker.Unsubscribe(c.sub)
		_ = c.conn.Close()
		c.logger.Info("websocket connection closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps change events and control replies to the websocket
// connection. It is the only writer on the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	events := c.sub.Events()
	for {
		select {
		case event, ok := <-events:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The notifier dropped us or stopped.
				if err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if !c.Wants(event) {
				continue
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case msg := <-c.control:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if err := c.writeJSON(msg); err != nil {
				c.logger.Error("failed to write control message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(v any) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload is the payload for subscribe/unsubscribe messages
type SubscribePayload struct {
	TicketID string `json:"ticketId"`
}

// ControlMessage is a server reply that is not a change event.
type ControlMessage struct {
	Type     string `json:"type"`
	TicketID string `json:"ticketId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleIncomingMessage processes messages received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		c.reply(ControlMessage{Type: MessageError, Error: "malformed message"})
		return
	}

	switch msg.Type {
	case MessageSubscribe:
		if ticketID, ok := c.parseTicketID(msg.Payload); ok {
			c.AddSubscription(ticketID)
			c.reply(ControlMessage{Type: MessageSubscribed, TicketID: ticketID.String()})
		}

	case MessageUnsubscribe:
		if ticketID, ok := c.parseTicketID(msg.Payload); ok {
			c.RemoveSubscription(ticketID)
			c.reply(ControlMessage{Type: MessageUnsubscribed, TicketID: ticketID.String()})
		}

	case MessagePing:
		c.reply(ControlMessage{Type: MessagePong})

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
		c.reply(ControlMessage{Type: MessageError, Error: "unknown message type"})
	}
}

func (c *Client) parseTicketID(payload json.RawMessage) (uuid.UUID, bool) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal subscribe payload", "error", err)
		c.reply(ControlMessage{Type: MessageError, Error: "malformed payload"})
		return uuid.Nil, false
	}

	ticketID, err := uuid.Parse(p.TicketID)
	if err != nil {
		c.logger.Warn("invalid ticket ID in subscribe request", "ticket_id", p.TicketID)
		c.reply(ControlMessage{Type: MessageError, Error: "invalid ticket id"})
		return uuid.Nil, false
	}
	return ticketID, true
}

// reply queues a control message. Replies are skipped when the queue is full.
func (c *Client) reply(msg ControlMessage) {
	select {
	case c.control <- msg:
	default:
	}
}
