package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-rooms/auth"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"chat-rooms/moderation"
	"chat-rooms/repositories"
	"chat-rooms/runtime"
	"chat-rooms/services"
	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	server *httptest.Server
	users  repositories.IUserRepository
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { db.Close() })

	log := slog.Default()
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(registry, log)
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log, nil)
	privateMessages := repositories.NewPrivateMessageRepository(db, log)
	friendships := repositories.NewFriendshipRepository(db)
	gate := moderation.NewGate(repositories.NewModerationRepository(db))
	req.NoError(users.EnsureSystemUser())

	service := services.NewChatService(log, registry, broadcaster, users, messages,
		privateMessages, friendships, nil, gate, nil)

	mux := http.NewServeMux()
	mux.Handle("GET /ws", NewHandler(log, service, []string{"*"}))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &wsFixture{server: server, users: users}
}

// dial opens an authenticated socket for an existing user.
func (f *wsFixture) dial(t *testing.T, username string) *websocket.Conn {
	t.Helper()
	req := require.New(t)
	token, err := auth.GenerateToken(username, false, time.Hour)
	req.NoError(err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventName string, payload any) {
	t.Helper()
	req := require.New(t)
	data, err := json.Marshal(payload)
	req.NoError(err)
	frame, err := json.Marshal(Envelope{Event: eventName, Data: data})
	req.NoError(err)
	req.NoError(conn.WriteMessage(websocket.TextMessage, frame))
}

// waitFor reads frames until the named event arrives or the deadline hits.
func waitFor(t *testing.T, conn *websocket.Conn, eventName string) Envelope {
	t.Helper()
	req := require.New(t)
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		req.NoError(err, "waiting for %s", eventName)
		var envelope Envelope
		req.NoError(json.Unmarshal(raw, &envelope))
		if envelope.Event == eventName {
			return envelope
		}
	}
}

func TestWS_Requires_Token(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestWS_Join_Send_Receive(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	room := domain.KnownRooms[0]
	_, err := f.users.CreateUser("alice", "not-a-real-hash", false)
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "not-a-real-hash", false)
	req.NoError(err)

	alice := f.dial(t, "alice")
	waitFor(t, alice, "connection_ack")
	send(t, alice, "join", JoinPayload{Username: "alice", Room: room})
	waitFor(t, alice, "join_ack")

	bob := f.dial(t, "bob")
	waitFor(t, bob, "connection_ack")
	send(t, bob, "join", JoinPayload{Username: "bob", Room: room})
	waitFor(t, bob, "join_ack")

	// Alice sees bob join
	joined := waitFor(t, alice, "user_joined")
	var joinedData map[string]any
	req.NoError(json.Unmarshal(joined.Data, &joinedData))

	// When alice sends, bob receives and alice is acked
	send(t, alice, "send", SendPayload{Content: "hello bob"})
	delivered := waitFor(t, bob, "message")
	var messageData map[string]any
	req.NoError(json.Unmarshal(delivered.Data, &messageData))
	req.Equal("hello bob", messageData["content"])
	req.Equal("alice", messageData["username"])
	waitFor(t, alice, "send_ack")
}

func TestWS_Identity_Mismatch(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	_, err := f.users.CreateUser("alice", "not-a-real-hash", false)
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "not-a-real-hash", false)
	req.NoError(err)

	alice := f.dial(t, "alice")
	waitFor(t, alice, "connection_ack")

	// Alice's token cannot join as bob
	send(t, alice, "join", JoinPayload{Username: "bob", Room: domain.KnownRooms[0]})
	failure := waitFor(t, alice, "error")
	var errData map[string]any
	req.NoError(json.Unmarshal(failure.Data, &errData))
	req.Equal(errors.CodeNotYourIdentity, errData["code"])
}

func TestWS_Send_Before_Join(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	_, err := f.users.CreateUser("alice", "not-a-real-hash", false)
	req.NoError(err)

	alice := f.dial(t, "alice")
	waitFor(t, alice, "connection_ack")

	send(t, alice, "send", SendPayload{Content: "too soon"})
	failure := waitFor(t, alice, "error")
	var errData map[string]any
	req.NoError(json.Unmarshal(failure.Data, &errData))
	req.Equal(errors.CodeNotAuthenticated, errData["code"])
}

func TestWS_Unknown_Event(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	_, err := f.users.CreateUser("alice", "not-a-real-hash", false)
	req.NoError(err)

	alice := f.dial(t, "alice")
	waitFor(t, alice, "connection_ack")

	send(t, alice, "shout", map[string]string{"content": "??"})
	failure := waitFor(t, alice, "error")
	var errData map[string]any
	req.NoError(json.Unmarshal(failure.Data, &errData))
	req.Equal(errors.CodeInvalidData, errData["code"])
}

func TestWS_Ping_Pong(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	_, err := f.users.CreateUser("alice", "not-a-real-hash", false)
	req.NoError(err)

	alice := f.dial(t, "alice")
	waitFor(t, alice, "connection_ack")

	send(t, alice, "ping", map[string]string{})
	pong := waitFor(t, alice, "pong")
	req.Equal("pong", pong.Event)
}

func TestWS_Disconnect_Announces_Departure(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	room := domain.KnownRooms[0]
	_, err := f.users.CreateUser("alice", "not-a-real-hash", false)
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "not-a-real-hash", false)
	req.NoError(err)

	alice := f.dial(t, "alice")
	waitFor(t, alice, "connection_ack")
	send(t, alice, "join", JoinPayload{Username: "alice", Room: room})
	waitFor(t, alice, "join_ack")

	bob := f.dial(t, "bob")
	waitFor(t, bob, "connection_ack")
	send(t, bob, "join", JoinPayload{Username: "bob", Room: room})
	waitFor(t, bob, "join_ack")

	req.NoError(bob.Close())

	left := waitFor(t, alice, "user_left")
	var leftData map[string]any
	req.NoError(json.Unmarshal(left.Data, &leftData))
	req.Equal("bob", leftData["username"])
}
