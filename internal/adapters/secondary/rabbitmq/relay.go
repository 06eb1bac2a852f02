package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lorrc/cinema-booking-backend/internal/config"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

const (
	dialAttempts   = 5
	dialBackoff    = 2 * time.Second
	publishTimeout = 5 * time.Second
)

// Publisher is the part of *amqp.Channel the relay needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Relay forwards ticket change events to a durable topic exchange with
// routing key "ticket.<kind>". It is attached to the change notifier as a
// subscriber and never feeds anything back.
type Relay struct {
	publisher Publisher
	exchange  string
	logger    *slog.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
}

var _ ports.ChangeHandler = (*Relay)(nil)

// NewRelay wraps an existing publisher. The exchange must already exist.
func NewRelay(publisher Publisher, exchange string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		publisher: publisher,
		exchange:  exchange,
		logger:    logger.With("component", "rabbitmq_relay"),
	}
}

// Dial connects to the broker, retrying a few times, and declares the exchange.
func Dial(ctx context.Context, cfg config.RabbitMQConfig, logger *slog.Logger) (*Relay, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		logger.Warn("failed to connect to rabbitmq, retrying",
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", dialAttempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}

	relay := NewRelay(ch, cfg.Exchange, logger)
	relay.conn = conn
	relay.channel = ch
	return relay, nil
}

// RoutingKey returns the routing key for an event type.
func RoutingKey(t domain.EventType) string {
	return "ticket." + t.Kind()
}

// HandleEvent implements ports.ChangeHandler.
func (r *Relay) HandleEvent(ctx context.Context, event domain.ChangeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = r.publisher.PublishWithContext(ctx,
		r.exchange,
		RoutingKey(event.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Type:         string(event.Type),
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	r.logger.DebugContext(ctx, "change event relayed",
		"routing_key", RoutingKey(event.Type),
		"ticket_id", event.TicketID,
	)
	return nil
}

// Close closes the channel and connection opened by Dial.
func (r *Relay) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
