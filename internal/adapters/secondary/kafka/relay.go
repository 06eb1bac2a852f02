package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lorrc/cinema-booking-backend/internal/config"
	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

// MessageWriter is the part of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Relay writes ticket change events to a topic. Messages are keyed by
// ticket id so all changes of one ticket land in one partition in order.
type Relay struct {
	writer MessageWriter
	logger *slog.Logger
}

var _ ports.ChangeHandler = (*Relay)(nil)

// NewWriter builds a synchronous writer for cfg.
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewRelay(writer MessageWriter, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		writer: writer,
		logger: logger.With("component", "kafka_relay"),
	}
}

// HandleEvent implements ports.ChangeHandler.
func (r *Relay) HandleEvent(ctx context.Context, event domain.ChangeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TicketID.String()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to kafka: %w", event.Type, err)
	}

	r.logger.DebugContext(ctx, "change event relayed",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
	)
	return nil
}

func (r *Relay) Close() error {
	return r.writer.Close()
}
