package runtime

import (
	"context"
	"testing"
	"time"

	"chat-rooms/domain"
	"chat-rooms/domain/event"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Sink struct{}

func (s Sink) Consume(ctx context.Context, e event.Event) error {
	return nil
}

func TestRegistry_Join_One_Room_One_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	room := domain.KnownRooms[0]
	sink := Sink{}

	// Given no connection exists
	req.Empty(registry.conns)
	req.Empty(registry.roomMembers)

	// When a connection registers and joins a room
	registry.Register(connectionID, sink)
	count, ok := registry.Join(connectionID, "alice", false, room)

	// Then the room has one member
	req.True(ok)
	req.Equal(1, count)
	req.Equal([]domain.Member{{Username: "alice"}}, registry.MembersOf(room))
	req.Len(registry.SinksForRoom(room), 1)

	username, isMod, bound := registry.Identity(connectionID)
	req.True(bound)
	req.False(isMod)
	req.Equal("alice", username)
	req.Equal(room, registry.CurrentRoom(connectionID))
}

func TestRegistry_Join_Second_Room_Leaves_First(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	registry.Register(connectionID, Sink{})

	// Given a connection already in room 1
	_, ok := registry.Join(connectionID, "alice", false, domain.KnownRooms[0])
	req.True(ok)

	// When it joins room 2
	count, ok := registry.Join(connectionID, "alice", false, domain.KnownRooms[1])

	// Then it sits only in room 2
	req.True(ok)
	req.Equal(1, count)
	req.Empty(registry.MembersOf(domain.KnownRooms[0]))
	req.Len(registry.MembersOf(domain.KnownRooms[1]), 1)
	req.Equal(domain.KnownRooms[1], registry.CurrentRoom(connectionID))
}

func TestRegistry_Join_Unknown_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, ok := registry.Join(uuid.NewString(), "alice", false, domain.KnownRooms[0])
	req.False(ok)
}

func TestRegistry_Second_Login_Supersedes_First(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.KnownRooms[0]
	firstConn := uuid.NewString()
	secondConn := uuid.NewString()
	registry.Register(firstConn, Sink{})
	registry.Register(secondConn, Sink{})

	// Given alice is connected once
	_, ok := registry.Join(firstConn, "alice", false, room)
	req.True(ok)

	// When alice joins again from a new connection
	count, ok := registry.Join(secondConn, "Alice", false, room)

	// Then the first connection is gone and the room has a single member
	req.True(ok)
	req.Equal(1, count)
	req.Len(registry.conns, 1)
	_, _, bound := registry.Identity(firstConn)
	req.False(bound)
	_, _, bound = registry.Identity(secondConn)
	req.True(bound)
}

func TestRegistry_Leave_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	room := domain.KnownRooms[0]
	registry.Register(connectionID, Sink{})
	_, ok := registry.Join(connectionID, "alice", false, room)
	req.True(ok)

	// When leaving twice
	req.True(registry.Leave(connectionID, room))
	req.False(registry.Leave(connectionID, room))

	// Then the session survives with its identity but no room
	req.Empty(registry.MembersOf(room))
	username, _, bound := registry.Identity(connectionID)
	req.True(bound)
	req.Equal("alice", username)
	req.Empty(registry.CurrentRoom(connectionID))
}

func TestRegistry_Disconnect_Reports_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	room := domain.KnownRooms[2]
	registry.Register(connectionID, Sink{})
	_, ok := registry.Join(connectionID, "bob", true, room)
	req.True(ok)

	// When the connection drops
	eviction := registry.Disconnect(connectionID)

	// Then the eviction names the user and the room left behind
	req.Equal("bob", eviction.Username)
	req.Equal([]string{room}, eviction.Rooms)
	req.Empty(registry.conns)
	req.Empty(registry.roomMembers)
}

func TestRegistry_Disconnect_Never_Joined(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	registry.Register(connectionID, Sink{})

	// When a connection that never joined disconnects
	eviction := registry.Disconnect(connectionID)

	// Then the eviction is empty and nothing to announce
	req.Empty(eviction.Username)
	req.Empty(eviction.Rooms)
}

func TestRegistry_MembersOf_Excludes_System(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.KnownRooms[0]
	systemConn := uuid.NewString()
	aliceConn := uuid.NewString()
	registry.Register(systemConn, Sink{})
	registry.Register(aliceConn, Sink{})
	_, ok := registry.Join(systemConn, domain.SystemUsername, true, room)
	req.True(ok)
	_, ok = registry.Join(aliceConn, "alice", false, room)
	req.True(ok)

	members := registry.MembersOf(room)
	req.Equal([]domain.Member{{Username: "alice"}}, members)
}

func TestRegistry_JoinPrivate_Requires_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	registry.Register(connectionID, Sink{})
	privateRoom := domain.PrivateRoomName("alice", "bob")

	// Then an anonymous connection cannot enter a private room
	req.False(registry.JoinPrivate(connectionID, privateRoom))

	// When the connection has an identity
	_, ok := registry.Join(connectionID, "alice", false, domain.KnownRooms[0])
	req.True(ok)
	req.True(registry.JoinPrivate(connectionID, privateRoom))
	req.Len(registry.SinksForPrivateRoom(privateRoom), 1)
}

func TestRegistry_SweepInactive(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := domain.KnownRooms[0]

	staleConn := uuid.NewString()
	freshConn := uuid.NewString()
	registry.Register(staleConn, Sink{})
	registry.Register(freshConn, Sink{})
	_, ok := registry.Join(staleConn, "alice", false, room)
	req.True(ok)
	_, ok = registry.Join(freshConn, "bob", false, room)
	req.True(ok)

	// Given alice went silent ten minutes ago
	base := time.Now().UTC()
	registry.conns[staleConn].LastActivity = base.Add(-10 * time.Minute)
	registry.conns[freshConn].LastActivity = base

	// When sweeping with a five minute threshold
	evictions := registry.SweepInactive(5 * time.Minute)

	// Then only alice is evicted
	req.Len(evictions, 1)
	req.Equal("alice", evictions[0].Username)
	req.Equal([]string{room}, evictions[0].Rooms)
	req.Equal([]domain.Member{{Username: "bob"}}, registry.MembersOf(room))
}

func TestRegistry_Touch_Keeps_Connection_Alive(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	registry.Register(connectionID, Sink{})

	// Given a connection about to expire
	registry.conns[connectionID].LastActivity = time.Now().UTC().Add(-4 * time.Minute)

	// When it pings
	req.True(registry.Touch(connectionID))

	// Then the sweep spares it
	req.Empty(registry.SweepInactive(5 * time.Minute))
	req.False(registry.Touch(uuid.NewString()))
}
