package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lorrc/cinema-booking-backend/internal/config"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

const (
	ticketListPrefix = "cache:tickets:"
	generationKey    = "cache:tickets:gen"

	// defaultTTL keeps superseded generations from living forever.
	defaultTTL = 30 * time.Second
)

// listKey names the cached list for one generation of the ticket set.
func listKey(gen int64) string {
	return ticketListPrefix + strconv.FormatInt(gen, 10)
}

// NewRedisClient builds a client from cfg. It does not dial.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// TicketCache is a ports.TicketStore decorator that keeps the full ticket
// list in Redis.
//
// Lists are stored under a generation number and every successful mutation
// bumps the generation. A List that read the store before a write committed
// can only fill the slot of the generation it started with, which no reader
// looks at once the write has returned. Redis errors are logged and the call
// falls through to the wrapped store.
type TicketCache struct {
	next   ports.TicketStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.TicketStore = (*TicketCache)(nil)
var _ ports.Pinger = (*TicketCache)(nil)

func NewTicketCache(next ports.TicketStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *TicketCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TicketCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "ticket_cache"),
	}
}

func (c *TicketCache) List(ctx context.Context) ([]*domain.Ticket, error) {
	gen, ok := c.generation(ctx)
	if !ok {
		return c.next.List(ctx)
	}

	key := listKey(gen)
	if tickets, ok := c.cachedList(ctx, key); ok {
		return tickets, nil
	}

	tickets, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(tickets)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to encode ticket list", "error", err)
		return tickets, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to cache ticket list", "error", err)
	}
	return tickets, nil
}

// generation reads the current generation. A missing key is generation 0.
func (c *TicketCache) generation(ctx context.Context) (int64, bool) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		c.logger.WarnContext(ctx, "ticket cache read failed", "error", err)
		return 0, false
	}
}

func (c *TicketCache) cachedList(ctx context.Context, key string) ([]*domain.Ticket, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "ticket cache read failed", "error", err)
		}
		return nil, false
	}

	var tickets []*domain.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		c.logger.WarnContext(ctx, "discarding corrupt ticket cache entry", "error", err)
		return nil, false
	}
	return tickets, true
}

// Invalidate moves the cache to a new generation. Lists cached under older
// generations are never read again and expire with their TTL.
func (c *TicketCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to invalidate ticket cache", "error", err)
	}
}

func (c *TicketCache) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return c.next.GetByID(ctx, id)
}

func (c *TicketCache) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	return c.mutate(ctx, func() (*domain.Ticket, error) { return c.next.Create(ctx, ticket) })
}

func (c *TicketCache) Update(ctx context.Context, id uuid.UUID, patch domain.TicketPatch) (*domain.Ticket, error) {
	return c.mutate(ctx, func() (*domain.Ticket, error) { return c.next.Update(ctx, id, patch) })
}

func (c *TicketCache) Delete(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return c.mutate(ctx, func() (*domain.Ticket, error) { return c.next.Delete(ctx, id) })
}

func (c *TicketCache) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, guard domain.TransitionGuard, next *domain.Ticket) (*domain.Ticket, error) {
	return c.mutate(ctx, func() (*domain.Ticket, error) {
		return c.next.CompareAndSwapStatus(ctx, id, guard, next)
	})
}

func (c *TicketCache) mutate(ctx context.Context, write func() (*domain.Ticket, error)) (*domain.Ticket, error) {
	ticket, err := write()
	if err != nil {
		return nil, err
	}
	c.Invalidate(ctx)
	return ticket, nil
}

// Ping checks the Redis connection.
func (c *TicketCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
