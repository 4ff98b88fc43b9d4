package events

import (
	"context"

	"go.uber.org/zap"
)

// Handler reacts to one event. Handlers run on the bus goroutine and must
// return quickly.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function act as a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is returned by every subscribe call.
type Subscription interface {
	Unsubscribe()
}

type subscriber struct {
	id      string
	handler Handler
}

type busSubscription struct {
	bus *Bus
	id  string
	typ EventType
}

func (s busSubscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}

type group []Subscription

// Group bundles subscriptions so they can be released together.
func Group(subs ...Subscription) Subscription {
	return group(subs)
}

func (g group) Unsubscribe() {
	for _, s := range g {
		s.Unsubscribe()
	}
}

// Channel copies events of the given types into a buffered channel, dropping
// what does not fit. The channel stays open after Unsubscribe.
func (b *Bus) Channel(buffer int, types ...EventType) (<-chan Event, Subscription) {
	ch := make(chan Event, buffer)
	subs := make(group, 0, len(types))
	for _, t := range types {
		subs = append(subs, b.SubscribeFunc(t, func(_ context.Context, e Event) error {
			select {
			case ch <- e:
			default:
				b.logger.Debug("Subscriber channel full, dropping event",
					zap.String("event_type", string(e.Type())))
			}
			return nil
		}))
	}
	return ch, subs
}
