package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxContentLength bounds the content of public and private messages.
const MaxContentLength = 1000

// Message is an immutable public chat event, scoped to one known room.
type Message struct {
	ID       uuid.UUID
	Room     string
	Username string
	Content  string
	IsMod    bool
	IsSystem bool
	At       time.Time
}

// PrivateMessage is an immutable one-to-one message between two friends.
type PrivateMessage struct {
	ID      uuid.UUID
	From    string
	To      string
	Content string
	IsMod   bool
	Read    bool
	At      time.Time
}

// Room returns the canonical private room the message belongs to.
func (m PrivateMessage) Room() string {
	return PrivateRoomName(m.From, m.To)
}
