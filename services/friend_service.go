package services

import (
	stderrors "errors"
	"log/slog"
	"strings"

	"chat-rooms/domain"
	"chat-rooms/errors"
	"chat-rooms/repositories"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const maxUserSearchResults = 10

type IFriendService interface {
	SendRequest(sender, receiver string) (domain.Friendship, error)
	Accept(actor string, requestID uuid.UUID) (domain.Friendship, error)
	Reject(actor string, requestID uuid.UUID) (domain.Friendship, error)
	Friends(username string) ([]string, error)
	PendingRequests(username string) ([]domain.Friendship, error)
	SearchUsers(term, requester string) ([]domain.User, error)
}

// FriendService manages the friendship graph. Only the receiver of a pending
// request may accept or reject it, and at most one live edge exists per pair.
type FriendService struct {
	log         *slog.Logger
	users       repositories.IUserRepository
	friendships repositories.IFriendshipRepository
}

func NewFriendService(
	log *slog.Logger,
	users repositories.IUserRepository,
	friendships repositories.IFriendshipRepository,
) *FriendService {
	return &FriendService{log: log, users: users, friendships: friendships}
}

func (s *FriendService) SendRequest(sender, receiver string) (domain.Friendship, error) {
	if strings.TrimSpace(receiver) == "" {
		return domain.Friendship{}, errors.Validation(errors.CodeEmptyTarget, "Target user is required")
	}
	if strings.EqualFold(sender, receiver) {
		return domain.Friendship{}, errors.Validation(errors.CodeSelfTarget, "You cannot befriend yourself")
	}
	if domain.IsReservedUsername(receiver) {
		return domain.Friendship{}, errors.NotFound(errors.CodeUserNotFound, "Unknown user")
	}

	receiverUser, found, err := s.users.GetUserByUsername(receiver)
	if err != nil {
		return domain.Friendship{}, errors.Internal(err)
	}
	if !found {
		return domain.Friendship{}, errors.NotFound(errors.CodeUserNotFound, "Unknown user")
	}

	friendship, err := s.friendships.CreateRequest(sender, receiverUser.Username)
	if err != nil {
		if stderrors.Is(err, errors.ErrFriendshipExists) {
			return domain.Friendship{}, errors.Validation(errors.CodeFriendshipExists, "A request or friendship already exists")
		}
		return domain.Friendship{}, errors.Internal(err)
	}
	s.log.Info("Friend request sent", "sender", sender, "receiver", receiverUser.Username)
	return friendship, nil
}

func (s *FriendService) Accept(actor string, requestID uuid.UUID) (domain.Friendship, error) {
	return s.resolve(actor, requestID, domain.FriendshipAccepted)
}

func (s *FriendService) Reject(actor string, requestID uuid.UUID) (domain.Friendship, error) {
	return s.resolve(actor, requestID, domain.FriendshipRejected)
}

// resolve settles a pending request. Only the receiver may do so.
func (s *FriendService) resolve(actor string, requestID uuid.UUID, status domain.FriendshipStatus) (domain.Friendship, error) {
	request, found, err := s.friendships.GetByID(requestID)
	if err != nil {
		return domain.Friendship{}, errors.Internal(err)
	}
	if !found {
		return domain.Friendship{}, errors.NotFound(errors.CodeRequestNotFound, "Friend request not found")
	}
	if !strings.EqualFold(request.Receiver, actor) {
		return domain.Friendship{}, errors.Authorization(errors.CodeNotYourRequest, "Only the receiver can settle a request")
	}
	if request.Status != domain.FriendshipPending {
		return domain.Friendship{}, errors.NotFound(errors.CodeRequestNotFound, "Friend request already settled")
	}

	updated, err := s.friendships.UpdateStatus(requestID, status)
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Friendship{}, errors.NotFound(errors.CodeRequestNotFound, "Friend request not found")
		}
		return domain.Friendship{}, errors.Internal(err)
	}
	s.log.Info("Friend request settled", "id", requestID, "status", status)
	return updated, nil
}

func (s *FriendService) Friends(username string) ([]string, error) {
	friends, err := s.friendships.FriendsOf(username)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return friends, nil
}

func (s *FriendService) PendingRequests(username string) ([]domain.Friendship, error) {
	pending, err := s.friendships.PendingFor(username)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return pending, nil
}

// SearchUsers finds accounts by username prefix or fragment. The requester
// and the SYSTEM user never appear; at most ten results.
func (s *FriendService) SearchUsers(term, requester string) ([]domain.User, error) {
	if len(strings.TrimSpace(term)) < 2 {
		return nil, errors.Validation(errors.CodeInvalidData, "Search term must be at least 2 characters")
	}
	users, err := s.users.SearchUsers(term, requester, maxUserSearchResults)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return users, nil
}
