// Package runtime holds the in-memory state of the chat server: which
// connection belongs to which user, who sits in which room, and how events
// reach them. Everything here is volatile; durable state lives in the
// repositories.
package runtime

import (
	"sort"
	"strings"
	"sync"
	"time"

	"chat-rooms/contract"
	"chat-rooms/domain"
)

type Set map[string]struct{}

// Connection is one live session. A connection starts anonymous and becomes
// bound to a username on its first successful join.
type Connection struct {
	ID           string
	Username     string
	IsMod        bool
	Room         string // current public room, empty when not joined
	PrivateRooms Set
	ConnectedAt  time.Time
	LastActivity time.Time
	sink         contract.EventSink
}

// Registry tracks connections, their identities and their room membership.
// A username is bound to at most one connection: a second login supersedes
// the first, which is evicted from the maps without closing its socket. The
// stale socket discovers the eviction when its next action fails.
type Registry struct {
	mu           sync.RWMutex
	conns        map[string]*Connection // connection ID -> session
	byUser       map[string]string      // lowercased username -> connection ID
	roomMembers  map[string]Set         // public room -> connection IDs
	privateRooms map[string]Set         // private room -> connection IDs
	now          func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		conns:        make(map[string]*Connection),
		byUser:       make(map[string]string),
		roomMembers:  make(map[string]Set),
		privateRooms: make(map[string]Set),
		now:          time.Now,
	}
}

// Register records a fresh connection with no identity yet. Join binds it.
func (r *Registry) Register(connectionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	r.conns[connectionID] = &Connection{
		ID:           connectionID,
		PrivateRooms: make(Set),
		ConnectedAt:  now,
		LastActivity: now,
		sink:         sink,
	}
}

// Join binds the connection to a username and moves it into the room. Joining
// a second room implicitly leaves the first: a connection sits in one public
// room at a time. Returns the room's member count after the join and whether
// the connection was known.
func (r *Registry) Join(connectionID, username string, isMod bool, room string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connectionID]
	if !ok {
		return 0, false
	}

	userKey := strings.ToLower(username)
	if previousID, bound := r.byUser[userKey]; bound && previousID != connectionID {
		r.evictLocked(previousID)
	}

	if conn.Room != "" && conn.Room != room {
		r.removeFromRoomLocked(conn.Room, connectionID)
	}

	conn.Username = username
	conn.IsMod = isMod
	conn.Room = room
	conn.LastActivity = r.now().UTC()
	r.byUser[userKey] = connectionID

	if _, exists := r.roomMembers[room]; !exists {
		r.roomMembers[room] = make(Set)
	}
	r.roomMembers[room][connectionID] = struct{}{}
	return len(r.roomMembers[room]), true
}

// Leave removes the connection from the room but keeps the session and its
// identity alive, so the user can join another room on the same socket.
// Leaving a room the connection is not in is a no-op.
func (r *Registry) Leave(connectionID, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connectionID]
	if !ok || conn.Room != room {
		return false
	}
	r.removeFromRoomLocked(room, connectionID)
	conn.Room = ""
	conn.LastActivity = r.now().UTC()
	return true
}

// JoinPrivate adds the connection to a private conversation room. The
// connection must already have an identity.
func (r *Registry) JoinPrivate(connectionID, privateRoom string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connectionID]
	if !ok || conn.Username == "" {
		return false
	}
	if _, exists := r.privateRooms[privateRoom]; !exists {
		r.privateRooms[privateRoom] = make(Set)
	}
	r.privateRooms[privateRoom][connectionID] = struct{}{}
	conn.PrivateRooms[privateRoom] = struct{}{}
	conn.LastActivity = r.now().UTC()
	return true
}

// Disconnect tears the connection down and reports which rooms lost a member
// so the caller can notify them. Disconnecting an unknown connection returns
// an empty eviction.
func (r *Registry) Disconnect(connectionID string) domain.Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictLocked(connectionID)
}

// evictLocked removes every trace of the connection. Caller holds r.mu.
func (r *Registry) evictLocked(connectionID string) domain.Eviction {
	conn, ok := r.conns[connectionID]
	if !ok {
		return domain.Eviction{ConnectionID: connectionID}
	}

	eviction := domain.Eviction{ConnectionID: connectionID, Username: conn.Username}
	if conn.Room != "" {
		eviction.Rooms = append(eviction.Rooms, conn.Room)
		r.removeFromRoomLocked(conn.Room, connectionID)
	}
	for privateRoom := range conn.PrivateRooms {
		if members, exists := r.privateRooms[privateRoom]; exists {
			delete(members, connectionID)
			if len(members) == 0 {
				delete(r.privateRooms, privateRoom)
			}
		}
	}

	userKey := strings.ToLower(conn.Username)
	if conn.Username != "" && r.byUser[userKey] == connectionID {
		delete(r.byUser, userKey)
	}
	delete(r.conns, connectionID)
	return eviction
}

func (r *Registry) removeFromRoomLocked(room, connectionID string) {
	members, ok := r.roomMembers[room]
	if !ok {
		return
	}
	delete(members, connectionID)
	if len(members) == 0 {
		delete(r.roomMembers, room)
	}
}

// MembersOf lists the users currently in the room, sorted by username. The
// SYSTEM user never appears in member lists.
func (r *Registry) MembersOf(room string) []domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]domain.Member, 0)
	for connectionID := range r.roomMembers[room] {
		conn, ok := r.conns[connectionID]
		if !ok || domain.IsReservedUsername(conn.Username) {
			continue
		}
		members = append(members, domain.Member{Username: conn.Username, IsMod: conn.IsMod})
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Username < members[j].Username
	})
	return members
}

// Touch refreshes the activity clock of the connection.
func (r *Registry) Touch(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connectionID]
	if !ok {
		return false
	}
	conn.LastActivity = r.now().UTC()
	return true
}

// SweepInactive evicts every connection whose last activity is older than
// the threshold and reports the evictions so callers can announce the
// departures.
func (r *Registry) SweepInactive(threshold time.Duration) []domain.Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().UTC().Add(-threshold)
	var stale []string
	for connectionID, conn := range r.conns {
		if conn.LastActivity.Before(cutoff) {
			stale = append(stale, connectionID)
		}
	}

	evictions := make([]domain.Eviction, 0, len(stale))
	for _, connectionID := range stale {
		evictions = append(evictions, r.evictLocked(connectionID))
	}
	return evictions
}

// Identity reports the username bound to the connection, its moderator flag,
// and whether the connection has an identity at all.
func (r *Registry) Identity(connectionID string) (string, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connectionID]
	if !ok || conn.Username == "" {
		return "", false, false
	}
	return conn.Username, conn.IsMod, true
}

// CurrentRoom returns the public room the connection sits in, or empty.
func (r *Registry) CurrentRoom(connectionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if conn, ok := r.conns[connectionID]; ok {
		return conn.Room
	}
	return ""
}

// Stats counts live connections and occupied public rooms.
func (r *Registry) Stats() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.roomMembers)
}

// SinksForRoom resolves the room's connections into their delivery sinks.
// Returns nil when the room is empty or unknown.
func (r *Registry) SinksForRoom(room string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sinksLocked(r.roomMembers[room])
}

// SinksForPrivateRoom resolves a private conversation's connections.
func (r *Registry) SinksForPrivateRoom(privateRoom string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sinksLocked(r.privateRooms[privateRoom])
}

// SinkFor resolves a single connection's sink.
func (r *Registry) SinkFor(connectionID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connectionID]
	if !ok {
		return nil, false
	}
	return conn.sink, true
}

func (r *Registry) sinksLocked(members Set) []contract.EventSink {
	var sinks []contract.EventSink
	for connectionID := range members {
		if conn, ok := r.conns[connectionID]; ok {
			sinks = append(sinks, conn.sink)
		}
	}
	return sinks
}
