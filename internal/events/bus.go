// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusClosed is returned by Publish after Shutdown.
	ErrBusClosed = errors.New("event bus is shutting down")
	// ErrBusFull is returned when the queue cannot take another event.
	ErrBusFull = errors.New("event queue full")
)

// Publisher is the narrow interface producers depend on.
type Publisher interface {
	Publish(event Event) error
}

// Nop is a Publisher that drops everything.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }

var (
	_ Publisher = (*Bus)(nil)
	_ Publisher = Nop{}
)

// Bus queues operation and connection events and delivers them, one at a
// time and in publish order, to the subscribers of each type. Subscribers of
// one type are called in subscription order.
type Bus struct {
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[EventType][]subscriber

	queue   chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	dropped atomic.Uint64
}

// NewBus starts a bus whose queue holds bufferSize events.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		logger:      logger.Named("event_bus"),
		subscribers: make(map[EventType][]subscriber),
		queue:       make(chan Event, bufferSize),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go b.run()
	return b
}

// Subscribe registers handler for events of type t.
func (b *Bus) Subscribe(t EventType, handler Handler) Subscription {
	id := uuid.NewString()

	b.mu.Lock()
	b.subscribers[t] = append(b.subscribers[t], subscriber{id: id, handler: handler})
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(t)),
		zap.String("subscription_id", id))
	return busSubscription{bus: b, id: id, typ: t}
}

// SubscribeFunc registers a function handler.
func (b *Bus) SubscribeFunc(t EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(t, HandlerFunc(fn))
}

func (b *Bus) unsubscribe(id string, t EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := slices.DeleteFunc(b.subscribers[t], func(s subscriber) bool { return s.id == id })
	if len(subs) == 0 {
		delete(b.subscribers, t)
	} else {
		b.subscribers[t] = subs
	}
	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(t)),
		zap.String("subscription_id", id))
}

// Publish queues event without blocking. A full queue drops the event.
func (b *Bus) Publish(event Event) error {
	if b.ctx.Err() != nil {
		return ErrBusClosed
	}
	select {
	case b.queue <- event:
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())))
		return fmt.Errorf("%w: %s", ErrBusFull, event.Type())
	}
}

// PublishSync delivers event on the caller's goroutine and joins the
// handler errors.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := slices.Clone(b.subscribers[event.Type()])
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("subscription_id", s.id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) run() {
	defer close(b.done)
	for {
		select {
		case event := <-b.queue:
			_ = b.PublishSync(b.ctx, event)
		case <-b.ctx.Done():
			// deliver what was queued before the shutdown
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Shutdown stops accepting events and waits for the queue to drain.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")
	b.cancel()

	select {
	case <-b.done:
		b.logger.Info("Event bus stopped", zap.Uint64("dropped", b.dropped.Load()))
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timed out")
		return ctx.Err()
	}
}

// Stats describes the bus state.
type Stats struct {
	BufferSize      int
	PendingEvents   int
	Dropped         uint64
	HandlersPerType map[EventType]int
}

// Stats returns a snapshot of queue and subscriber counts.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[EventType]int, len(b.subscribers))
	for t, subs := range b.subscribers {
		counts[t] = len(subs)
	}
	return Stats{
		BufferSize:      cap(b.queue),
		PendingEvents:   len(b.queue),
		Dropped:         b.dropped.Load(),
		HandlersPerType: counts,
	}
}
