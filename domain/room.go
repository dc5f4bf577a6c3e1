// Package domain contains core concepts of the chat system: users, rooms,
// messages, friendships and moderation records. No runtime, network, or
// storage logic should be added here.
package domain

import (
	"sort"
	"strings"
)

// KnownRooms is the fixed list of public rooms, shared verbatim with clients.
// Both transports validate against this list; it is never derived from data.
var KnownRooms = []string{
	"Chat Room 1",
	"Chat Room 2",
	"Chat Room 3",
	"Chat Room 4",
	"Chat Room 5",
}

// SystemUsername is the reserved synthetic identity used for moderation
// announcements. It never appears in member lists or search results.
const SystemUsername = "SYSTEM"

// IsKnownRoom reports whether name is one of the fixed public rooms.
func IsKnownRoom(name string) bool {
	for _, r := range KnownRooms {
		if r == name {
			return true
		}
	}
	return false
}

// PrivateRoomName derives the canonical two-party room identifier.
// Order-independent: PrivateRoomName(a, b) == PrivateRoomName(b, a).
func PrivateRoomName(user1, user2 string) string {
	pair := []string{user1, user2}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// IsReservedUsername reports whether the username collides with the system
// identity, in any casing.
func IsReservedUsername(username string) bool {
	return strings.EqualFold(username, SystemUsername)
}
