package repositories

import (
	"log/slog"
	"testing"
	"time"

	"chat-rooms/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func privateMessage(from, to, content string, at time.Time) domain.PrivateMessage {
	return domain.PrivateMessage{
		ID:      uuid.New(),
		From:    from,
		To:      to,
		Content: content,
		At:      at,
	}
}

func Test_GetConversation_Merges_Both_Directions(t *testing.T) {
	req := require.New(t)
	repository := NewPrivateMessageRepository(openBadger(t), slog.Default())
	at := time.Now().UTC()

	req.NoError(repository.StorePrivateMessage(privateMessage("alice", "bob", "hi bob", at)))
	req.NoError(repository.StorePrivateMessage(privateMessage("bob", "alice", "hi alice", at.Add(time.Second))))
	req.NoError(repository.StorePrivateMessage(privateMessage("alice", "bob", "how are you", at.Add(2*time.Second))))

	// Both participants read the same chronological thread
	conversation, err := repository.GetConversation("alice", "bob")
	req.NoError(err)
	req.Len(conversation, 3)
	req.Equal("hi bob", conversation[0].Content)
	req.Equal("hi alice", conversation[1].Content)
	req.Equal("how are you", conversation[2].Content)

	mirrored, err := repository.GetConversation("BOB", "Alice")
	req.NoError(err)
	req.Len(mirrored, 3)
}

func Test_GetConversation_Isolates_Pairs(t *testing.T) {
	req := require.New(t)
	repository := NewPrivateMessageRepository(openBadger(t), slog.Default())
	at := time.Now().UTC()

	req.NoError(repository.StorePrivateMessage(privateMessage("alice", "bob", "for bob", at)))
	req.NoError(repository.StorePrivateMessage(privateMessage("alice", "clara", "for clara", at)))

	conversation, err := repository.GetConversation("alice", "clara")
	req.NoError(err)
	req.Len(conversation, 1)
	req.Equal("for clara", conversation[0].Content)
}

func Test_GetConversation_Empty(t *testing.T) {
	req := require.New(t)
	repository := NewPrivateMessageRepository(openBadger(t), slog.Default())

	conversation, err := repository.GetConversation("alice", "bob")
	req.NoError(err)
	req.Empty(conversation)
}
