//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-rooms/domain"
	"chat-rooms/domain/event"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; the supervisor restarts it after a panic.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live delivery target, typically a WebSocket connection.
// Consume must not block the caller indefinitely; a slow or closed sink drops.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry is the presence registry: the authoritative in-memory mapping
// between connections, users and rooms.
type IRegistry interface {
	Register(connectionID string, sink EventSink)
	Join(connectionID, username string, isMod bool, room string) (int, bool)
	Leave(connectionID, room string) bool
	Disconnect(connectionID string) domain.Eviction
	JoinPrivate(connectionID, privateRoom string) bool
	MembersOf(room string) []domain.Member
	Touch(connectionID string) bool
	SweepInactive(threshold time.Duration) []domain.Eviction
	Identity(connectionID string) (string, bool, bool)
	CurrentRoom(connectionID string) string
	Stats() (connections int, rooms int)
}

// IBroadcaster fans events out to room members or a single connection.
type IBroadcaster interface {
	BroadcastToRoom(ctx context.Context, room string, e event.Event)
	BroadcastToPrivateRoom(ctx context.Context, privateRoom string, e event.Event)
	SendToConnection(ctx context.Context, connectionID string, e event.Event)
}
