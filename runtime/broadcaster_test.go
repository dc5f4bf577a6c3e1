package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"chat-rooms/domain"
	"chat-rooms/domain/event"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []event.Event
	fail   bool
}

func (s *recordingSink) Consume(ctx context.Context, e event.Event) error {
	if s.fail {
		return fmt.Errorf("sink closed")
	}
	s.events = append(s.events, e)
	return nil
}

func TestBroadcaster_Room_Fanout(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, slog.Default())
	room := domain.KnownRooms[0]

	aliceSink := &recordingSink{}
	bobSink := &recordingSink{}
	outsiderSink := &recordingSink{}
	for username, sink := range map[string]*recordingSink{
		"alice": aliceSink, "bob": bobSink,
	} {
		connectionID := uuid.NewString()
		registry.Register(connectionID, sink)
		_, ok := registry.Join(connectionID, username, false, room)
		req.True(ok)
	}
	outsiderConn := uuid.NewString()
	registry.Register(outsiderConn, outsiderSink)
	_, ok := registry.Join(outsiderConn, "clara", false, domain.KnownRooms[1])
	req.True(ok)

	// When broadcasting to the room
	broadcaster.BroadcastToRoom(context.Background(), room, event.UserJoined{Username: "alice"})

	// Then only members of that room receive the event
	req.Len(aliceSink.events, 1)
	req.Len(bobSink.events, 1)
	req.Empty(outsiderSink.events)
}

func TestBroadcaster_Concurrent_Broadcasts_Keep_Room_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, slog.Default())
	room := domain.KnownRooms[0]

	aliceSink := &recordingSink{}
	bobSink := &recordingSink{}
	for username, sink := range map[string]*recordingSink{
		"alice": aliceSink, "bob": bobSink,
	} {
		connectionID := uuid.NewString()
		registry.Register(connectionID, sink)
		_, ok := registry.Join(connectionID, username, false, room)
		req.True(ok)
	}

	// When several goroutines broadcast to the same room at once
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				broadcaster.BroadcastToRoom(context.Background(), room, event.Message{
					Content: fmt.Sprintf("g%d-%d", g, i),
				})
			}
		}(g)
	}
	wg.Wait()

	// Then every member observed the exact same sequence
	req.Len(aliceSink.events, 100)
	req.Equal(aliceSink.events, bobSink.events)
}

func TestBroadcaster_Failing_Sink_Does_Not_Block_Others(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, slog.Default())
	room := domain.KnownRooms[0]

	broken := &recordingSink{fail: true}
	healthy := &recordingSink{}
	for username, sink := range map[string]*recordingSink{
		"alice": broken, "bob": healthy,
	} {
		connectionID := uuid.NewString()
		registry.Register(connectionID, sink)
		_, ok := registry.Join(connectionID, username, false, room)
		req.True(ok)
	}

	broadcaster.BroadcastToRoom(context.Background(), room, event.UserLeft{Username: "dave"})

	req.Len(healthy.events, 1)
}

func TestBroadcaster_SendToConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, slog.Default())

	sink := &recordingSink{}
	connectionID := uuid.NewString()
	registry.Register(connectionID, sink)

	broadcaster.SendToConnection(context.Background(), connectionID, event.Pong{})
	broadcaster.SendToConnection(context.Background(), uuid.NewString(), event.Pong{})

	req.Len(sink.events, 1)
	req.Equal("pong", sink.events[0].EventName())
}

func TestBroadcaster_Private_Room_Reaches_Both_Ends(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, slog.Default())
	privateRoom := domain.PrivateRoomName("alice", "bob")

	aliceSink := &recordingSink{}
	bobSink := &recordingSink{}
	for username, sink := range map[string]*recordingSink{
		"alice": aliceSink, "bob": bobSink,
	} {
		connectionID := uuid.NewString()
		registry.Register(connectionID, sink)
		_, ok := registry.Join(connectionID, username, false, domain.KnownRooms[0])
		req.True(ok)
		req.True(registry.JoinPrivate(connectionID, privateRoom))
	}

	broadcaster.BroadcastToPrivateRoom(context.Background(), privateRoom, event.PrivateMessage{From: "alice", To: "bob"})

	req.Len(aliceSink.events, 1)
	req.Len(bobSink.events, 1)
}
