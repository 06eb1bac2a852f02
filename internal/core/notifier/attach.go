package notifier

import (
	"context"

	"github.com/lorrc/cinema-booking-backend/internal/core/ports"
)

// Attach subscribes handler to the hub and consumes events in a dedicated
// goroutine until ctx is done or the hub stops. Handler errors are logged and
// the event is skipped.
//
// A handler that stalls long enough for its buffer to fill is dropped by the
// hub like any slow subscriber. Attach then subscribes it again, so the
// handler misses the events published while it was detached but keeps
// receiving after that.
//
// The returned channel is closed when the consumer goroutine exits.
func (h *Hub) Attach(ctx context.Context, name string, buffer int, handler ports.ChangeHandler) <-chan struct{} {
	sub := h.SubscribeBuffered(name, buffer)
	logger := h.logger.With("subscriber", name)
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		defer func() { h.Unsubscribe(sub) }()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					if !h.resubscribe(ctx) {
						return
					}
					logger.Warn("subscriber fell behind and was dropped, resubscribing; events published in between are lost")
					sub = h.SubscribeBuffered(name, buffer)
					continue
				}
				if err := handler.HandleEvent(ctx, event); err != nil {
					logger.Error("failed to handle change event",
						"event_type", event.Type,
						"ticket_id", event.TicketID,
						"error", err,
					)
				}
			}
		}
	}()

	return exited
}

// resubscribe reports whether a closed subscription should be replaced:
// neither the consumer nor the hub has stopped.
func (h *Hub) resubscribe(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-h.done:
		return false
	default:
		return true
	}
}
