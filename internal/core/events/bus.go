package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/linkup-hub/pkg/logger"
	"go.uber.org/multierr"
)

// Event is a domain notification raised after a payment or grant changes state.
type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

// EventBus fans events out to in-process subscribers. Asynchronous deliveries
// are tracked so shutdown can wait for them with Drain.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	inflight    sync.WaitGroup
	log         *slog.Logger
}

func NewEventBus(log *slog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]Handler),
		log:         log,
	}
}

func (b *EventBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	n := len(b.subscribers[eventType])
	b.mu.Unlock()

	b.log.Debug("subscribed to event", "event_type", eventType, "subscribers", n)
}

func (b *EventBus) handlersFor(eventType string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := b.subscribers[eventType]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

// Publish delivers the event on background goroutines. The handlers receive a
// context that keeps the publisher's values but not its cancellation, so a
// finished HTTP request does not abort them.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	hs := b.handlersFor(event.EventType())
	if len(hs) == 0 {
		return nil
	}

	log := logger.FromOr(ctx, b.log)
	log.Debug("publishing event", "event_type", event.EventType(), "event_id", event.EventID(), "subscribers", len(hs))

	detached := context.WithoutCancel(ctx)
	b.inflight.Add(len(hs))
	for _, h := range hs {
		go func(h Handler) {
			defer b.inflight.Done()
			if err := b.deliver(detached, h, event); err != nil {
				log.Error("event handler failed", "event_type", event.EventType(), "event_id", event.EventID(), "error", err)
			}
		}(h)
	}
	return nil
}

// PublishSync runs every handler in order on the caller's goroutine and
// returns the combined failures.
func (b *EventBus) PublishSync(ctx context.Context, event Event) error {
	var errs error
	for _, h := range b.handlersFor(event.EventType()) {
		errs = multierr.Append(errs, b.deliver(ctx, h, event))
	}
	if errs != nil {
		return fmt.Errorf("handling %s %s: %w", event.EventType(), event.EventID(), errs)
	}
	return nil
}

// Drain blocks until asynchronous deliveries finish or ctx is done.
func (b *EventBus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining event handlers: %w", ctx.Err())
	}
}

func (b *EventBus) deliver(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(ctx, event)
}
