package services

import (
	"context"
	"testing"

	"chat-rooms/domain"
	"chat-rooms/domain/event"
	"chat-rooms/errors"
	"github.com/stretchr/testify/require"
)

func TestModeration_Kick_Requires_Moderator(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	f.register(t, "alice", false)
	f.register(t, "bob", false)

	err := f.moderation.Kick(context.Background(), "alice", "bob")
	req.Error(err)
	req.Equal(errors.CodeModRequired, errors.AsError(err).Code)

	// Nothing announced
	history, err := f.service.History(domain.KnownRooms[0])
	req.NoError(err)
	req.Empty(history)
}

func TestModeration_Self_Moderation_Denied(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	f.register(t, "morgan", true)

	err := f.moderation.Ban(context.Background(), "morgan", "Morgan")
	req.Error(err)
	req.Equal(errors.CodeSelfModeration, errors.AsError(err).Code)
}

func TestModeration_Kick_Announces_And_Gates(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.KnownRooms[0]
	f.register(t, "morgan", true)
	f.register(t, "alice", false)
	f.register(t, "bob", false)

	aliceConn, _ := f.connect(t, "alice", room)
	_, bobSink := f.connect(t, "bob", room)

	// When a moderator kicks alice
	req.NoError(f.moderation.Kick(context.Background(), "morgan", "alice"))

	// Then alice's session survives; only the gate blocks her
	_, _, bound := f.registry.Identity(aliceConn)
	req.True(bound)
	req.Equal([]domain.Member{
		{Username: "alice"}, {Username: "bob"},
	}, f.registry.MembersOf(room))

	// And bob saw the SYSTEM announcement exactly once
	var systemMessages []event.Message
	for _, e := range bobSink.ofName("message") {
		if msg := e.(event.Message); msg.IsSystem {
			systemMessages = append(systemMessages, msg)
		}
	}
	req.Len(systemMessages, 1)
	req.Equal(domain.SystemUsername, systemMessages[0].Username)
	req.Contains(systemMessages[0].Content, "alice")

	// And every room's history carries the announcement exactly once
	for _, knownRoom := range domain.KnownRooms {
		history, err := f.service.History(knownRoom)
		req.NoError(err)
		var stored int
		for _, m := range history {
			if m.IsSystem {
				stored++
			}
		}
		req.Equal(1, stored)
	}

	// And alice's next send on her open connection reports the kick
	err := f.service.Send(context.Background(), aliceConn, "let me back in", room)
	req.Error(err)
	req.Equal(errors.CodeUserKicked, errors.AsError(err).Code)
}

func TestModeration_Banned_User_Keeps_Session_But_Cannot_Send(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.KnownRooms[0]
	f.register(t, "morgan", true)
	f.register(t, "xavier", false)

	xavierConn, _ := f.connect(t, "xavier", room)

	req.NoError(f.moderation.Ban(context.Background(), "morgan", "xavier"))

	// The open connection keeps its identity
	username, _, bound := f.registry.Identity(xavierConn)
	req.True(bound)
	req.Equal("xavier", username)

	// The next send from that connection reports the ban, not a lost session
	err := f.service.Send(context.Background(), xavierConn, "still here?", room)
	req.Error(err)
	req.Equal(errors.CodeUserBanned, errors.AsError(err).Code)
}

func TestModeration_Ban_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	room := domain.KnownRooms[0]
	f.register(t, "morgan", true)
	f.register(t, "alice", false)
	_, bobSink := f.connect(t, "morgan", room)

	// When banning twice
	req.NoError(f.moderation.Ban(context.Background(), "morgan", "alice"))
	req.NoError(f.moderation.Ban(context.Background(), "morgan", "alice"))

	// Then the announcement happened only once
	var systemMessages int
	for _, e := range bobSink.ofName("message") {
		if e.(event.Message).IsSystem {
			systemMessages++
		}
	}
	req.Equal(1, systemMessages)

	history, err := f.service.History(room)
	req.NoError(err)
	req.Len(history, 1)
}

func TestModeration_Unknown_Target(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	f.register(t, "morgan", true)

	err := f.moderation.Kick(context.Background(), "morgan", "ghost")
	req.Error(err)
	req.Equal(errors.CodeUserNotFound, errors.AsError(err).Code)
}

func TestModeration_System_Cannot_Be_Sanctioned(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	f.register(t, "morgan", true)

	err := f.moderation.Ban(context.Background(), "morgan", domain.SystemUsername)
	req.Error(err)
	req.Equal(errors.CodeUserNotFound, errors.AsError(err).Code)
}
