// Package event defines the closed set of server-to-client event variants.
// Each variant carries its wire name; transports marshal the payload as-is
// inside an {event, data} envelope.
package event

import "time"

// Event is implemented by every server-to-client variant.
type Event interface {
	EventName() string
}

type ConnectionAck struct {
	SID        string    `json:"sid"`
	ServerTime time.Time `json:"server_time"`
}

func (ConnectionAck) EventName() string { return "connection_ack" }

type JoinAck struct {
	Room        string    `json:"room"`
	Username    string    `json:"username"`
	IsMod       bool      `json:"is_mod"`
	MemberCount int       `json:"member_count"`
	ServerTime  time.Time `json:"server_time"`
}

func (JoinAck) EventName() string { return "join_ack" }

type MemberEntry struct {
	Username string `json:"username"`
	IsMod    bool   `json:"is_mod"`
}

type MemberList struct {
	Room      string        `json:"room"`
	Users     []MemberEntry `json:"users"`
	Count     int           `json:"count"`
	Timestamp time.Time     `json:"timestamp"`
}

func (MemberList) EventName() string { return "member_list" }

type UserJoined struct {
	Username string    `json:"username"`
	IsMod    bool      `json:"is_mod"`
	Time     time.Time `json:"time"`
}

func (UserJoined) EventName() string { return "user_joined" }

type UserLeft struct {
	Username string    `json:"username"`
	Time     time.Time `json:"time"`
}

func (UserLeft) EventName() string { return "user_left" }

type Message struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsMod     bool      `json:"is_mod"`
	IsSystem  bool      `json:"is_system"`
	Room      string    `json:"room"`
}

func (Message) EventName() string { return "message" }

type SendAck struct {
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (SendAck) EventName() string { return "send_ack" }

type PrivateMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsMod     bool      `json:"is_mod"`
}

func (PrivateMessage) EventName() string { return "private_message" }

type PrivateSendAck struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
	Status    string `json:"status"`
}

func (PrivateSendAck) EventName() string { return "private_send_ack" }

type LeaveAck struct {
	Room   string `json:"room"`
	Status string `json:"status"`
}

func (LeaveAck) EventName() string { return "leave_ack" }

type PrivateJoinAck struct {
	Room   string `json:"room"`
	With   string `json:"with"`
	Status string `json:"status"`
}

func (PrivateJoinAck) EventName() string { return "private_join_ack" }

type Pong struct {
	Timestamp time.Time `json:"timestamp"`
}

func (Pong) EventName() string { return "pong" }

type Error struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (Error) EventName() string { return "error" }
