package domain

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

// Friendship is a directed request between two users. At most one non-terminal
// (pending or accepted) edge may exist between any pair, regardless of
// direction; a rejected edge may be replaced by a fresh request.
type Friendship struct {
	ID        uuid.UUID
	Sender    string
	Receiver  string
	Status    FriendshipStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the edge no longer blocks a new request.
func (f Friendship) Terminal() bool {
	return f.Status == FriendshipRejected
}

// PairKey returns the canonical order-independent key of the two endpoints.
func (f Friendship) PairKey() string {
	return PrivateRoomName(f.Sender, f.Receiver)
}
