package runtime

import (
	"context"
	"log/slog"
	"sync"

	"chat-rooms/contract"
	"chat-rooms/domain/event"
)

// Broadcaster fans events out to the sinks held by the registry. Delivery is
// best effort: a failing sink is logged and skipped so one slow client never
// blocks a room. Fanouts are serialized so every member of a room observes
// concurrent broadcasts in the same relative order.
type Broadcaster struct {
	registry *Registry
	log      *slog.Logger
	mu       sync.Mutex
}

func NewBroadcaster(registry *Registry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

// BroadcastToRoom delivers the event to every connection in the public room.
func (b *Broadcaster) BroadcastToRoom(ctx context.Context, room string, e event.Event) {
	b.fanout(ctx, b.registry.SinksForRoom(room), e)
}

// BroadcastToPrivateRoom delivers the event to both ends of a private
// conversation that are currently connected.
func (b *Broadcaster) BroadcastToPrivateRoom(ctx context.Context, privateRoom string, e event.Event) {
	b.fanout(ctx, b.registry.SinksForPrivateRoom(privateRoom), e)
}

// SendToConnection delivers the event to a single connection.
func (b *Broadcaster) SendToConnection(ctx context.Context, connectionID string, e event.Event) {
	sink, ok := b.registry.SinkFor(connectionID)
	if !ok {
		b.log.Debug("Send to unknown connection dropped", "connection", connectionID, "event", e.EventName())
		return
	}
	if err := sink.Consume(ctx, e); err != nil {
		b.log.Debug("Event delivery failed", "connection", connectionID, "event", e.EventName(), "error", err)
	}
}

func (b *Broadcaster) fanout(ctx context.Context, sinks []contract.EventSink, e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			b.log.Debug("Event delivery failed", "event", e.EventName(), "error", err)
		}
	}
}
