package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/domain/event"
	"chat-rooms/errors"
	"chat-rooms/moderation"
	"chat-rooms/repositories"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	Connect(ctx context.Context, connectionID string, sink contract.EventSink)
	Join(ctx context.Context, connectionID, authUsername, username, room string) error
	Send(ctx context.Context, connectionID, content, room string) error
	Leave(ctx context.Context, connectionID, claimed, room string) error
	JoinPrivate(ctx context.Context, connectionID, with string) error
	SendPrivate(ctx context.Context, connectionID, to, content string) error
	Ping(ctx context.Context, connectionID string)
	Disconnect(ctx context.Context, connectionID string)
	PostPublic(ctx context.Context, username string, isMod bool, room, content string) (domain.Message, error)
	PostPrivate(ctx context.Context, from string, isMod bool, to, content string) (domain.PrivateMessage, error)
	History(room string) ([]domain.Message, error)
	PrivateHistory(requester, other string) ([]domain.PrivateMessage, error)
	SearchMessages(ctx context.Context, room, query string, limit int) ([]repositories.MessageHit, error)
}

// ChatService drives live sessions: joining rooms, fanning messages out and
// keeping durable history in step with what connected clients see. A message
// is always persisted before it is broadcast.
type ChatService struct {
	log             *slog.Logger
	registry        contract.IRegistry
	broadcaster     contract.IBroadcaster
	users           repositories.IUserRepository
	messages        repositories.IMessageRepository
	privateMessages repositories.IPrivateMessageRepository
	friendships     repositories.IFriendshipRepository
	index           repositories.IMessageIndex
	gate            *moderation.Gate
	censor          *moderation.Censor
}

func NewChatService(
	log *slog.Logger,
	registry contract.IRegistry,
	broadcaster contract.IBroadcaster,
	users repositories.IUserRepository,
	messages repositories.IMessageRepository,
	privateMessages repositories.IPrivateMessageRepository,
	friendships repositories.IFriendshipRepository,
	index repositories.IMessageIndex,
	gate *moderation.Gate,
	censor *moderation.Censor,
) *ChatService {
	return &ChatService{
		log:             log,
		registry:        registry,
		broadcaster:     broadcaster,
		users:           users,
		messages:        messages,
		privateMessages: privateMessages,
		friendships:     friendships,
		index:           index,
		gate:            gate,
		censor:          censor,
	}
}

// Connect registers a fresh anonymous connection and acknowledges it.
func (s *ChatService) Connect(ctx context.Context, connectionID string, sink contract.EventSink) {
	s.registry.Register(connectionID, sink)
	s.broadcaster.SendToConnection(ctx, connectionID, event.ConnectionAck{
		SID:        connectionID,
		ServerTime: time.Now().UTC(),
	})
}

// Join binds the connection to its authenticated identity and enters a public
// room. The joining client gets an ack plus the recent history; the room gets
// a join announcement and a refreshed member list.
func (s *ChatService) Join(ctx context.Context, connectionID, authUsername, username, room string) error {
	if strings.TrimSpace(username) == "" {
		return errors.Validation(errors.CodeEmptyUsername, "Username is required")
	}
	if !strings.EqualFold(username, authUsername) {
		return errors.Authorization(errors.CodeNotYourIdentity, "You cannot join as another user")
	}
	if !domain.IsKnownRoom(room) {
		return errors.Validation(errors.CodeInvalidRoom, "Unknown room")
	}

	user, found, err := s.users.GetUserByUsername(username)
	if err != nil {
		return errors.Internal(err)
	}
	if !found {
		return errors.NotFound(errors.CodeUserNotFound, "Unknown user")
	}
	if err := s.authorize(user.Username); err != nil {
		return err
	}

	memberCount, ok := s.registry.Join(connectionID, user.Username, user.IsMod, room)
	if !ok {
		return errors.Internal(nil)
	}
	now := time.Now().UTC()

	s.broadcaster.SendToConnection(ctx, connectionID, event.JoinAck{
		Room:        room,
		Username:    user.Username,
		IsMod:       user.IsMod,
		MemberCount: memberCount,
		ServerTime:  now,
	})

	// Member-list refresh is the authoritative signal, the join event is
	// supplementary.
	broadcastMemberList(ctx, s.broadcaster, s.registry, room, now)
	s.broadcaster.BroadcastToRoom(ctx, room, event.UserJoined{
		Username: user.Username,
		IsMod:    user.IsMod,
		Time:     now,
	})

	// Replay the recent history to the joining client only
	history, err := s.messages.GetRecent(room)
	if err != nil {
		s.log.Error("History replay failed", "room", room, "error", err)
		return nil
	}
	for _, message := range history {
		s.broadcaster.SendToConnection(ctx, connectionID, toMessageEvent(message))
	}
	return nil
}

// Send posts a message to the connection's current room. When a room is given
// it must match the one the connection sits in.
func (s *ChatService) Send(ctx context.Context, connectionID, content, room string) error {
	username, isMod, bound := s.registry.Identity(connectionID)
	if !bound {
		return errors.Authorization(errors.CodeNotAuthenticated, "Join a room before sending")
	}
	currentRoom := s.registry.CurrentRoom(connectionID)
	if currentRoom == "" {
		return errors.Authorization(errors.CodeNotAuthenticated, "Join a room before sending")
	}
	if room != "" && room != currentRoom {
		return errors.Validation(errors.CodeInvalidRoom, "You are not in this room")
	}

	message, err := s.PostPublic(ctx, username, isMod, currentRoom, content)
	if err != nil {
		return err
	}
	s.registry.Touch(connectionID)
	s.broadcaster.SendToConnection(ctx, connectionID, event.SendAck{
		MessageID: message.ID.String(),
		Status:    "ok",
		Timestamp: message.At,
	})
	return nil
}

// PostPublic validates, censors, persists and broadcasts one public message.
// Both the socket path and the REST path go through here so their limits and
// error codes never drift apart.
func (s *ChatService) PostPublic(ctx context.Context, username string, isMod bool, room, content string) (domain.Message, error) {
	if !domain.IsKnownRoom(room) {
		return domain.Message{}, errors.Validation(errors.CodeInvalidRoom, "Unknown room")
	}
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, errors.Validation(errors.CodeEmptyContent, "Message content is required")
	}
	if utf8.RuneCountInString(content) > domain.MaxContentLength {
		return domain.Message{}, errors.Validation(errors.CodeMessageTooLong, "Message exceeds 1000 characters")
	}
	if err := s.authorize(username); err != nil {
		return domain.Message{}, err
	}

	message := domain.Message{
		ID:       uuid.New(),
		Room:     room,
		Username: username,
		Content:  s.censor.Apply(content),
		IsMod:    isMod,
		At:       time.Now().UTC(),
	}
	if err := s.messages.StoreMessage(message); err != nil {
		return domain.Message{}, errors.Persistence(errors.CodeSendFailed, "Message could not be stored", err)
	}
	if s.index != nil {
		// Search is best effort; a failed index write never fails the send
		if err := s.index.Index(message); err != nil {
			s.log.Warn("Message indexing failed", "id", message.ID, "error", err)
		}
	}

	s.broadcaster.BroadcastToRoom(ctx, room, toMessageEvent(message))
	return message, nil
}

// Leave exits the current room. Leaving a room the connection is not in still
// acknowledges, so retries are harmless.
func (s *ChatService) Leave(ctx context.Context, connectionID, claimed, room string) error {
	username, _, bound := s.registry.Identity(connectionID)
	if !bound {
		return errors.Authorization(errors.CodeNotAuthenticated, "Join a room before leaving")
	}
	// A connection may not leave on behalf of another user, and the claimed
	// identity must be stated.
	if !strings.EqualFold(claimed, username) {
		return errors.Authorization(errors.CodeNotYourIdentity, "You cannot leave for another user")
	}

	left := s.registry.Leave(connectionID, room)
	s.broadcaster.SendToConnection(ctx, connectionID, event.LeaveAck{Room: room, Status: "ok"})
	if !left {
		return nil
	}

	now := time.Now().UTC()
	broadcastMemberList(ctx, s.broadcaster, s.registry, room, now)
	s.broadcaster.BroadcastToRoom(ctx, room, event.UserLeft{Username: username, Time: now})
	return nil
}

// JoinPrivate opens the one-to-one conversation with an accepted friend and
// replays it to the caller.
func (s *ChatService) JoinPrivate(ctx context.Context, connectionID, with string) error {
	username, _, bound := s.registry.Identity(connectionID)
	if !bound {
		return errors.Authorization(errors.CodeNotAuthenticated, "Join a room before opening a private chat")
	}
	if err := s.checkPrivateCounterpart(username, with); err != nil {
		return err
	}

	privateRoom := domain.PrivateRoomName(username, with)
	if !s.registry.JoinPrivate(connectionID, privateRoom) {
		return errors.Internal(nil)
	}

	s.broadcaster.SendToConnection(ctx, connectionID, event.PrivateJoinAck{
		Room:   privateRoom,
		With:   with,
		Status: "ok",
	})

	conversation, err := s.privateMessages.GetConversation(username, with)
	if err != nil {
		s.log.Error("Private history replay failed", "room", privateRoom, "error", err)
		return nil
	}
	for _, message := range conversation {
		s.broadcaster.SendToConnection(ctx, connectionID, toPrivateMessageEvent(message))
	}
	return nil
}

// SendPrivate delivers a message to a friend. Both ends of the conversation
// that are connected receive it.
func (s *ChatService) SendPrivate(ctx context.Context, connectionID, to, content string) error {
	username, isMod, bound := s.registry.Identity(connectionID)
	if !bound {
		return errors.Authorization(errors.CodeNotAuthenticated, "Join a room before sending")
	}

	message, err := s.PostPrivate(ctx, username, isMod, to, content)
	if err != nil {
		return err
	}
	s.registry.Touch(connectionID)
	s.broadcaster.SendToConnection(ctx, connectionID, event.PrivateSendAck{
		MessageID: message.ID.String(),
		To:        to,
		Status:    "ok",
	})
	return nil
}

// PostPrivate validates, censors, persists and broadcasts one private
// message. Shared by the socket and REST paths.
func (s *ChatService) PostPrivate(ctx context.Context, from string, isMod bool, to, content string) (domain.PrivateMessage, error) {
	if err := s.checkPrivateCounterpart(from, to); err != nil {
		return domain.PrivateMessage{}, err
	}
	if strings.TrimSpace(content) == "" {
		return domain.PrivateMessage{}, errors.Validation(errors.CodeEmptyContent, "Message content is required")
	}
	if utf8.RuneCountInString(content) > domain.MaxContentLength {
		return domain.PrivateMessage{}, errors.Validation(errors.CodeMessageTooLong, "Message exceeds 1000 characters")
	}
	if err := s.authorize(from); err != nil {
		return domain.PrivateMessage{}, err
	}

	message := domain.PrivateMessage{
		ID:      uuid.New(),
		From:    from,
		To:      to,
		Content: s.censor.Apply(content),
		IsMod:   isMod,
		At:      time.Now().UTC(),
	}
	if err := s.privateMessages.StorePrivateMessage(message); err != nil {
		return domain.PrivateMessage{}, errors.Persistence(errors.CodeSendFailed, "Message could not be stored", err)
	}

	s.broadcaster.BroadcastToPrivateRoom(ctx, message.Room(), toPrivateMessageEvent(message))
	return message, nil
}

// Ping refreshes the inactivity clock.
func (s *ChatService) Ping(ctx context.Context, connectionID string) {
	s.registry.Touch(connectionID)
	s.broadcaster.SendToConnection(ctx, connectionID, event.Pong{Timestamp: time.Now().UTC()})
}

// Disconnect tears the session down and announces the departure to the rooms
// it was in.
func (s *ChatService) Disconnect(ctx context.Context, connectionID string) {
	eviction := s.registry.Disconnect(connectionID)
	if eviction.Username == "" {
		return
	}
	now := time.Now().UTC()
	for _, room := range eviction.Rooms {
		broadcastMemberList(ctx, s.broadcaster, s.registry, room, now)
		s.broadcaster.BroadcastToRoom(ctx, room, event.UserLeft{Username: eviction.Username, Time: now})
	}
}

// History returns the recent messages of a public room, oldest first.
func (s *ChatService) History(room string) ([]domain.Message, error) {
	if !domain.IsKnownRoom(room) {
		return nil, errors.Validation(errors.CodeInvalidRoom, "Unknown room")
	}
	messages, err := s.messages.GetRecent(room)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return messages, nil
}

// PrivateHistory returns the conversation between the requester and a friend.
func (s *ChatService) PrivateHistory(requester, other string) ([]domain.PrivateMessage, error) {
	if err := s.checkPrivateCounterpart(requester, other); err != nil {
		return nil, err
	}
	conversation, err := s.privateMessages.GetConversation(requester, other)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return conversation, nil
}

// SearchMessages runs a full-text query over one room's history.
func (s *ChatService) SearchMessages(ctx context.Context, room, query string, limit int) ([]repositories.MessageHit, error) {
	if !domain.IsKnownRoom(room) {
		return nil, errors.Validation(errors.CodeInvalidRoom, "Unknown room")
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.Validation(errors.CodeInvalidData, "Search query is required")
	}
	if s.index == nil {
		return nil, nil
	}
	hits, err := s.index.Search(ctx, room, query, limit)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return hits, nil
}

// checkPrivateCounterpart validates the other end of a private interaction:
// present, not yourself, a real account, and an accepted friend.
func (s *ChatService) checkPrivateCounterpart(username, other string) error {
	if strings.TrimSpace(other) == "" {
		return errors.Validation(errors.CodeEmptyTarget, "Target user is required")
	}
	if strings.EqualFold(username, other) {
		return errors.Validation(errors.CodeSelfTarget, "You cannot target yourself")
	}
	if domain.IsReservedUsername(other) {
		return errors.NotFound(errors.CodeUserNotFound, "Unknown user")
	}
	_, found, err := s.users.GetUserByUsername(other)
	if err != nil {
		return errors.Internal(err)
	}
	if !found {
		return errors.NotFound(errors.CodeUserNotFound, "Unknown user")
	}

	friends, err := s.friendships.AreFriends(username, other)
	if err != nil {
		return errors.Internal(err)
	}
	if !friends {
		return errors.Authorization(errors.CodeNotFriends, "You are not friends with this user")
	}
	return nil
}

func (s *ChatService) authorize(username string) error {
	decision, err := s.gate.Authorize(username)
	if err != nil {
		return errors.Internal(err)
	}
	switch decision {
	case moderation.DeniedBanned:
		return errors.Authorization(errors.CodeUserBanned, "You are banned from the chat")
	case moderation.DeniedKicked:
		return errors.Authorization(errors.CodeUserKicked, "You are temporarily suspended from the chat")
	}
	return nil
}

// broadcastMemberList sends a refreshed member snapshot to the whole room.
// Shared with the moderation service, which announces evictions the same way.
func broadcastMemberList(ctx context.Context, broadcaster contract.IBroadcaster, registry contract.IRegistry, room string, at time.Time) {
	members := registry.MembersOf(room)
	broadcaster.BroadcastToRoom(ctx, room, event.MemberList{
		Room: room,
		Users: lo.Map(members, func(m domain.Member, _ int) event.MemberEntry {
			return event.MemberEntry{Username: m.Username, IsMod: m.IsMod}
		}),
		Count:     len(members),
		Timestamp: at,
	})
}

func toMessageEvent(m domain.Message) event.Message {
	return event.Message{
		ID:        m.ID.String(),
		Username:  m.Username,
		Content:   m.Content,
		Timestamp: m.At,
		IsMod:     m.IsMod,
		IsSystem:  m.IsSystem,
		Room:      m.Room,
	}
}

func toPrivateMessageEvent(m domain.PrivateMessage) event.PrivateMessage {
	return event.PrivateMessage{
		ID:        m.ID.String(),
		From:      m.From,
		To:        m.To,
		Content:   m.Content,
		Timestamp: m.At,
		IsMod:     m.IsMod,
	}
}
