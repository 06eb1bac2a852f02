package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	mw "github.com/lorrc/cinema-booking-backend/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/cinema-booking-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/cinema-booking-backend/internal/config"
)

// Broker is the change notifier as seen by the HTTP layer.
type Broker interface {
	wsAdapter.Broker
	NotifierStats
}

// WebSocketHandler upgrades connections to the live ticket feed
type WebSocketHandler struct {
	broker   wsAdapter.Broker
	upgrader websocket.Upgrader
	options  wsAdapter.Options
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler. Authentication is
// optional and handled by middleware; anonymous viewers get the same feed.
func NewWebSocketHandler(
	broker wsAdapter.Broker,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		broker: broker,
		options: wsAdapter.Options{
			Buffer:       cfg.WebSocket.ClientBuffer,
			PingInterval: cfg.WebSocket.PingInterval,
			PongWait:     cfg.WebSocket.PongWait,
		},
		logger: logger.With("handler", "websocket"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg *config.Config) func(r *http.Request) bool {
	allowedOrigins := cfg.WebSocket.AllowedOrigins
	development := cfg.IsDevelopment()

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		// In development mode, allow all origins (but log a warning)
		if development {
			h.logger.Warn("allowing websocket connection in development mode",
				"origin", origin,
				"remote_addr", r.RemoteAddr,
			)
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		if originAllowed(parsedOrigin.Host, allowedOrigins) {
			return true
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// originAllowed matches a host against the allow list. Entries may be a
// bare host, a full origin URL or a "*.example.com" wildcard.
func originAllowed(host string, allowed []string) bool {
	for _, entry := range allowed {
		if entry == "*" {
			return true
		}
		if u, err := url.Parse(entry); err == nil && u.Host != "" {
			entry = u.Host
		}
		if strings.HasPrefix(entry, "*.") {
			suffix := entry[1:] // keep ".example.com"
			if strings.HasSuffix(host, suffix) || host == entry[2:] {
				return true
			}
		} else if host == entry {
			return true
		}
	}
	return false
}

// ServeHTTP handles WebSocket connection requests
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := mw.GetUserID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an error response.
		h.logger.WarnContext(r.Context(), "failed to upgrade websocket connection", "error", err)
		return
	}

	h.logger.InfoContext(r.Context(), "websocket connection established",
		"remote_addr", r.RemoteAddr,
		"authenticated", userID != uuid.Nil,
	)

	wsAdapter.NewClient(conn, h.broker, userID, h.options, h.logger).Serve()
}
