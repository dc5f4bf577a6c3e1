package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"chat-rooms/repositories"
	"github.com/google/uuid"
)

type IModerationService interface {
	Kick(ctx context.Context, actor, target string) error
	Ban(ctx context.Context, actor, target string) error
}

// ModerationService applies kicks and bans. A sanction posts a SYSTEM
// announcement to every public room, persisted like any other message so late
// joiners see it in history. The target's live session is left untouched: the
// gate rejects their next send or join with the sanction code.
type ModerationService struct {
	log         *slog.Logger
	broadcaster contract.IBroadcaster
	users       repositories.IUserRepository
	messages    repositories.IMessageRepository
	store       repositories.IModerationRepository
}

func NewModerationService(
	log *slog.Logger,
	broadcaster contract.IBroadcaster,
	users repositories.IUserRepository,
	messages repositories.IMessageRepository,
	store repositories.IModerationRepository,
) *ModerationService {
	return &ModerationService{
		log:         log,
		broadcaster: broadcaster,
		users:       users,
		messages:    messages,
		store:       store,
	}
}

// Kick suspends the target for twelve hours. Kicking an already-kicked user
// restarts the window.
func (s *ModerationService) Kick(ctx context.Context, actor, target string) error {
	targetUser, err := s.checkSanction(actor, target)
	if err != nil {
		return err
	}

	if err := s.store.PutKick(targetUser.Username, time.Now().UTC()); err != nil {
		return errors.Internal(err)
	}
	s.log.Info("User kicked", "actor", actor, "target", targetUser.Username)

	s.announce(ctx,
		fmt.Sprintf("%s has been kicked from the chat for 12 hours.", targetUser.Username))
	return nil
}

// Ban suspends the target permanently. Banning an already-banned user is a
// no-op: nothing is announced twice.
func (s *ModerationService) Ban(ctx context.Context, actor, target string) error {
	targetUser, err := s.checkSanction(actor, target)
	if err != nil {
		return err
	}

	if err := s.store.PutBan(targetUser.Username, time.Now().UTC()); err != nil {
		if stderrors.Is(err, errors.ErrAlreadyBanned) {
			return nil
		}
		return errors.Internal(err)
	}
	s.log.Info("User banned", "actor", actor, "target", targetUser.Username)

	s.announce(ctx,
		fmt.Sprintf("%s has been banned from the chat.", targetUser.Username))
	return nil
}

// checkSanction validates the actor's authority and resolves the target.
func (s *ModerationService) checkSanction(actor, target string) (domain.User, error) {
	actorUser, found, err := s.users.GetUserByUsername(actor)
	if err != nil {
		return domain.User{}, errors.Internal(err)
	}
	if !found || !actorUser.IsMod {
		return domain.User{}, errors.Authorization(errors.CodeModRequired, "Moderator privileges required")
	}
	if strings.TrimSpace(target) == "" {
		return domain.User{}, errors.Validation(errors.CodeEmptyTarget, "Target user is required")
	}
	if strings.EqualFold(actor, target) {
		return domain.User{}, errors.Validation(errors.CodeSelfModeration, "You cannot moderate yourself")
	}
	if domain.IsReservedUsername(target) {
		return domain.User{}, errors.NotFound(errors.CodeUserNotFound, "Unknown user")
	}

	targetUser, found, err := s.users.GetUserByUsername(target)
	if err != nil {
		return domain.User{}, errors.Internal(err)
	}
	if !found {
		return domain.User{}, errors.NotFound(errors.CodeUserNotFound, "Unknown user")
	}
	return targetUser, nil
}

// announce posts the SYSTEM announcement to every public room, exactly once
// per room.
func (s *ModerationService) announce(ctx context.Context, announcement string) {
	now := time.Now().UTC()

	for _, room := range domain.KnownRooms {
		message := domain.Message{
			ID:       uuid.New(),
			Room:     room,
			Username: domain.SystemUsername,
			Content:  announcement,
			IsMod:    true,
			IsSystem: true,
			At:       now,
		}
		if err := s.messages.StoreMessage(message); err != nil {
			s.log.Error("System announcement not stored", "room", room, "error", err)
			continue
		}
		s.broadcaster.BroadcastToRoom(ctx, room, toMessageEvent(message))
	}
}
