package notifier

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lorrc/cinema-booking-backend/internal/core/domain"
	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

const (
	DefaultQueueSize        = 1024
	DefaultSubscriberBuffer = 256
)

// Config sizes the hub's queues.
type Config struct {
	// QueueSize bounds the publish queue. Publish blocks while it is full.
	QueueSize int
	// SubscriberBuffer is the default per-subscriber buffer. A subscriber
	// whose buffer is full when an event arrives is dropped.
	SubscriberBuffer int
}

// Subscription is a registered receiver of change events.
type Subscription struct {
	id   uint64
	name string
	hub  *Hub
	send chan domain.ChangeEvent

	closeOnce sync.Once
}

// Events returns the delivery channel. It is closed when the subscription
// ends, either by Unsubscribe, by the hub dropping a slow subscriber or by
// the hub stopping.
func (s *Subscription) Events() <-chan domain.ChangeEvent {
	return s.send
}

// Name returns the label given at Subscribe time.
func (s *Subscription) Name() string {
	return s.name
}

// Unsubscribe removes the subscription from its hub.
func (s *Subscription) Unsubscribe() {
	s.hub.Unsubscribe(s)
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

type unregisterRequest struct {
	sub  *Subscription
	done chan struct{}
}

type registerRequest struct {
	sub  *Subscription
	done chan struct{}
}

// Hub fans change events out to every live subscription.
//
// A single loop goroutine owns the subscriber set. Registration, removal and
// broadcast are all serialized through it, so every subscriber observes
// events in publish order.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	broadcast  chan domain.ChangeEvent
	register   chan registerRequest
	unregister chan unregisterRequest
	done       chan struct{}

	subscribers map[*Subscription]struct{}

	nextID  atomic.Uint64
	count   atomic.Int64
	dropped atomic.Int64
	running atomic.Bool
	stop    sync.Once
}

var _ ports.ChangeNotifier = (*Hub)(nil)

// NewHub creates a hub. Call Run to start delivering events.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		cfg:         cfg,
		logger:      logger.With("component", "change_notifier"),
		broadcast:   make(chan domain.ChangeEvent, cfg.QueueSize),
		register:    make(chan registerRequest),
		unregister:  make(chan unregisterRequest),
		done:        make(chan struct{}),
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a receiver with the default buffer size. Events
// published after Subscribe returns are delivered to it.
func (h *Hub) Subscribe(name string) *Subscription {
	return h.SubscribeBuffered(name, h.cfg.SubscriberBuffer)
}

// SubscribeBuffered registers a receiver with its own buffer size.
func (h *Hub) SubscribeBuffered(name string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = h.cfg.SubscriberBuffer
	}
	sub := &Subscription{
		id:   h.nextID.Add(1),
		name: name,
		hub:  h,
		send: make(chan domain.ChangeEvent, buffer),
	}

	req := registerRequest{sub: sub, done: make(chan struct{})}
	select {
	case h.register <- req:
		<-req.done
	case <-h.done:
		sub.close()
	}
	return sub
}

// Unsubscribe removes a subscription. Once it returns the subscription will
// not receive further events and its channel is closed. Unknown or already
// removed subscriptions are ignored.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	req := unregisterRequest{sub: sub, done: make(chan struct{})}
	select {
	case h.unregister <- req:
		<-req.done
	case <-h.done:
		sub.close()
	}
}

// Publish enqueues an event for delivery. It never fails. It blocks only
// while the queue is full and does nothing once the hub has stopped.
func (h *Hub) Publish(event domain.ChangeEvent) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- event:
	case <-h.done:
	}
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	return int(h.count.Load())
}

// DroppedCount returns how many subscribers were removed for being slow.
func (h *Hub) DroppedCount() int64 {
	return h.dropped.Load()
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run starts the hub's event loop and blocks until ctx is cancelled.
// Stopping closes every remaining subscription. Events still queued at that
// point are discarded.
func (h *Hub) Run(ctx context.Context) {
	if !h.running.CompareAndSwap(false, true) {
		h.logger.Warn("hub already running")
		return
	}
	defer h.shutdown()

	h.logger.Info("change notifier started")

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-h.register:
			h.subscribers[req.sub] = struct{}{}
			h.count.Store(int64(len(h.subscribers)))
			h.logger.Debug("subscriber registered",
				"subscriber", req.sub.name,
				"subscriber_id", req.sub.id,
				"total_subscribers", len(h.subscribers),
			)
			close(req.done)

		case req := <-h.unregister:
			h.remove(req.sub)
			close(req.done)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// deliver hands the event to each subscriber without blocking.
func (h *Hub) deliver(event domain.ChangeEvent) {
	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
		"subscriber_count", len(h.subscribers),
	)

	for sub := range h.subscribers {
		select {
		case sub.send <- event:
		default:
			h.logger.Warn("subscriber buffer full, dropping subscriber",
				"subscriber", sub.name,
				"subscriber_id", sub.id,
			)
			h.dropped.Add(1)
			h.remove(sub)
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	if _, ok := h.subscribers[sub]; !ok {
		sub.close()
		return
	}
	delete(h.subscribers, sub)
	h.count.Store(int64(len(h.subscribers)))
	sub.close()

	h.logger.Debug("subscriber removed",
		"subscriber", sub.name,
		"subscriber_id", sub.id,
		"total_subscribers", len(h.subscribers),
	)
}

func (h *Hub) shutdown() {
	h.stop.Do(func() {
		close(h.done)
		for sub := range h.subscribers {
			sub.close()
		}
		h.subscribers = make(map[*Subscription]struct{})
		h.count.Store(0)
		h.logger.Info("change notifier stopped")
	})
}
