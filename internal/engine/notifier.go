package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a lifecycle transition published to subscribers.
type EventType string

const (
	EventClaimed          EventType = "claimed"
	EventProgress         EventType = "progress"
	EventCompleted        EventType = "completed"
	EventFailed           EventType = "failed"
	EventQueuedForDesktop EventType = "queued_for_desktop"
)

// Event is one lifecycle notification.
type Event struct {
	RequestID uuid.UUID      `json:"request_id"`
	Type      EventType      `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Handler receives events on the notifier's dispatch goroutine; slow
// handlers delay later events, not the engine.
type Handler func(Event)

// EventSink forwards events to an external transport (real-time push,
// webhooks). Satisfied by cache.RedisCache via pub/sub.
type EventSink interface {
	PublishEvent(ctx context.Context, channel string, payload []byte) error
}

// Notifier fans lifecycle events out to registered handlers and an optional
// external sink through a bounded channel. Publish never blocks the caller;
// when the buffer is full the event is dropped with a warning.
type Notifier struct {
	mu       sync.RWMutex
	handlers []Handler

	ch      chan Event
	sink    EventSink
	channel string
}

// NewNotifier creates a notifier with the given buffer size. sink may be nil.
func NewNotifier(buffer int, sink EventSink, channel string) *Notifier {
	if buffer <= 0 {
		buffer = 64
	}
	return &Notifier{
		ch:      make(chan Event, buffer),
		sink:    sink,
		channel: channel,
	}
}

// Subscribe registers a handler for all subsequent events.
func (n *Notifier) Subscribe(h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, h)
}

// Publish enqueues an event for dispatch without blocking.
func (n *Notifier) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	select {
	case n.ch <- evt:
	default:
		slog.Warn("notifier buffer full, dropping event",
			"request_id", evt.RequestID, "event_type", evt.Type)
	}
}

// Run dispatches events until ctx is cancelled. Remaining buffered events
// are drained before returning.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case evt := <-n.ch:
			n.dispatch(ctx, evt)
		case <-ctx.Done():
			for {
				select {
				case evt := <-n.ch:
					n.dispatch(context.Background(), evt)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, evt Event) {
	n.mu.RLock()
	handlers := make([]Handler, len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}

	if n.sink == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		slog.Error("marshal lifecycle event", "error", err, "request_id", evt.RequestID)
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.sink.PublishEvent(pubCtx, n.channel, payload); err != nil {
		slog.Warn("publish lifecycle event",
			"error", err, "request_id", evt.RequestID, "event_type", evt.Type)
	}
}
