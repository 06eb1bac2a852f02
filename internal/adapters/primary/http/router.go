package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/lorrc/cinema-booking-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/cinema-booking-backend/internal/auth"
	"github.com/lorrc/cinema-booking-backend/internal/config"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

// RouterDeps collects everything the HTTP surface is built from.
type RouterDeps struct {
	Config        *config.Config
	Logger        *slog.Logger
	TokenManager  *auth.TokenManager
	TicketService ports.TicketService
	AuthService   ports.AuthService
	Broker        Broker
	HealthChecks  map[string]HealthChecker

	// Optional limiters. Nil disables the corresponding limit.
	GeneralLimiter *mw.RateLimiter
	AuthLimiter    *mw.RateLimiter
	BookingLimiter *mw.RateLimitByKey
}

// NewRouter wires middleware, handlers and routes.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	errorHandler := NewErrorHandler(logger)

	authHandler := NewAuthHandler(deps.AuthService, deps.TokenManager, errorHandler, logger)
	ticketHandler := NewTicketHandler(deps.TicketService, errorHandler, logger)
	wsHandler := NewWebSocketHandler(deps.Broker, deps.Config, logger)
	healthHandler := NewHealthHandler(deps.HealthChecks, deps.Broker, deps.Config.App.Version)

	authenticate := mw.JWTMiddleware(deps.TokenManager)

	var bookingLimit func(http.Handler) http.Handler
	if deps.BookingLimiter != nil {
		bookingLimit = deps.BookingLimiter.PerUser
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           deps.Config.CORS.MaxAge,
	}))

	if deps.GeneralLimiter != nil {
		r.Use(deps.GeneralLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			if deps.AuthLimiter != nil {
				r.Use(deps.AuthLimiter.Middleware)
			}
			r.Route("/auth", func(r chi.Router) {
				authHandler.RegisterRoutes(r, authenticate)
			})
		})

		r.Route("/tickets", func(r chi.Router) {
			ticketHandler.RegisterRoutes(r, authenticate, bookingLimit)
		})

		// Live feed; a token is optional but must be valid when present
		r.With(mw.OptionalJWTMiddleware(deps.TokenManager)).Get("/ws", wsHandler.ServeHTTP)
	})

	return r
}
