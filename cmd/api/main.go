package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	httpAdapter "github.com/lorrc/cinema-booking-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/cinema-booking-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/cinema-booking-backend/internal/adapters/secondary/cache"
	"github.com/lorrc/cinema-booking-backend/internal/adapters/secondary/email"
	"github.com/lorrc/cinema-booking-backend/internal/adapters/secondary/kafka"
	"github.com/lorrc/cinema-booking-backend/internal/adapters/secondary/memory"
	"github.com/lorrc/cinema-booking-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/cinema-booking-backend/internal/adapters/secondary/rabbitmq"
	"github.com/lorrc/cinema-booking-backend/internal/auth"
	"github.com/lorrc/cinema-booking-backend/internal/config"
	"github.com/lorrc/cinema-booking-backend/internal/core/booking"
	"github.com/lorrc/cinema-booking-backend/internal/core/notifier"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
	"github.com/lorrc/cinema-booking-backend/internal/core/services"
	"github.com/lorrc/cinema-booking-backend/internal/infrastructure/logging"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file (overrides CONFIG_FILE)")
	runMigrations := pflag.Bool("migrate", false, "apply database migrations before serving")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	pflag.Parse()

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		AddSource:   cfg.Logging.AddSource,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"store", cfg.Store.Driver,
	)

	// 3. Migrations
	if *runMigrations || *migrateOnly || cfg.Database.AutoMigrate {
		if cfg.Store.Driver != config.StoreDriverPostgres {
			logger.Error("migrations require the postgres store driver", "store", cfg.Store.Driver)
			os.Exit(1)
		}
		if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath, logger); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		if *migrateOnly {
			return
		}
	}

	// 4. Storage (Secondary Adapters)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	// 5. Change Notifier
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	hub := notifier.NewHub(notifier.Config{
		QueueSize:        cfg.WebSocket.EventQueueSize,
		SubscriberBuffer: cfg.WebSocket.ClientBuffer,
	}, logger)
	go hub.Run(hubCtx)

	// 6. Core services
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	engine := booking.NewEngine(storage.tickets, logger)
	ticketService := services.NewTicketService(storage.tickets, engine, hub, logger)
	authService := services.NewAuthService(storage.users)

	// 7. Change subscribers: receipts and broker relays
	receipts := services.NewReceiptService(email.NewMockSMTPNotifier(storage.users, logger))
	consumers := []<-chan struct{}{
		hub.Attach(hubCtx, "receipts", cfg.WebSocket.RelayBuffer, receipts),
	}

	if cfg.RabbitMQ.Enabled {
		relay, err := rabbitmq.Dial(ctx, cfg.RabbitMQ, logger)
		if err != nil {
			logger.Error("failed to start rabbitmq relay", "error", err)
			os.Exit(1)
		}
		defer relay.Close()
		consumers = append(consumers, hub.Attach(hubCtx, "rabbitmq", cfg.WebSocket.RelayBuffer, relay))
		logger.Info("rabbitmq relay attached", "exchange", cfg.RabbitMQ.Exchange)
	}

	if cfg.Kafka.Enabled {
		relay := kafka.NewRelay(kafka.NewWriter(cfg.Kafka), logger)
		defer relay.Close()
		consumers = append(consumers, hub.Attach(hubCtx, "kafka", cfg.WebSocket.RelayBuffer, relay))
		logger.Info("kafka relay attached", "topic", cfg.Kafka.Topic)
	}

	// 8. Rate Limiters
	var (
		generalRateLimiter, authRateLimiter *mw.RateLimiter
		bookingRateLimiter                  *mw.RateLimitByKey
	)
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		defer generalRateLimiter.Stop()

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
		defer authRateLimiter.Stop()

		bookingRateLimiter = mw.NewRateLimitByKey(cfg.RateLimit.BookingRPS, cfg.RateLimit.BookingBurst)
		defer bookingRateLimiter.Stop()
	}

	// 9. Router (Primary Adapters)
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Config:         cfg,
		Logger:         logger,
		TokenManager:   tokenManager,
		TicketService:  ticketService,
		AuthService:    authService,
		Broker:         hub,
		HealthChecks:   storage.checks,
		GeneralLimiter: generalRateLimiter,
		AuthLimiter:    authRateLimiter,
		BookingLimiter: bookingRateLimiter,
	})

	// 10. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stopping the hub closes every live feed and lets the relays drain out.
	stopHub()
	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
		logger.Warn("change notifier did not stop in time")
	}
	for _, exited := range consumers {
		select {
		case <-exited:
		case <-shutdownCtx.Done():
		}
	}

	logger.Info("server shutdown complete")
}

// storage bundles the selected store, user repository and their health checks.
type storage struct {
	tickets ports.TicketStore
	users   ports.UserRepository
	checks  map[string]httpAdapter.HealthChecker
	closers []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	s := &storage{checks: make(map[string]httpAdapter.HealthChecker)}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		logger.Info("database connection established")

		tickets := postgres.NewTicketStore(pool)
		s.tickets = tickets
		s.users = postgres.NewUserRepository(pool)
		s.checks["database"] = tickets
		logPoolStats(logger, pool)

	case config.StoreDriverMemory:
		tickets := memory.NewTicketStore()
		s.tickets = tickets
		s.users = memory.NewUserRepository()
		s.checks["store"] = tickets
		logger.Warn("using in-memory store; data is lost on restart")

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Redis.Enabled {
		client := cache.NewRedisClient(cfg.Redis)
		s.closers = append(s.closers, func() { _ = client.Close() })

		cached := cache.NewTicketCache(s.tickets, client, cfg.Redis.CacheTTL, logger)
		s.tickets = cached
		s.checks["cache"] = cached
		logger.Info("ticket list cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	return s, nil
}

func logPoolStats(logger *slog.Logger, pool *pgxpool.Pool) {
	stat := pool.Stat()
	logger.Debug("database pool ready",
		"max_conns", stat.MaxConns(),
		"total_conns", stat.TotalConns(),
	)
}
