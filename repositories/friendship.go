//go:generate go run go.uber.org/mock/mockgen -source=friendship.go -destination=../mocks/mock_friendship_repository.go -package=mocks
package repositories

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"encoding/json"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IFriendshipRepository interface {
	CreateRequest(sender, receiver string) (domain.Friendship, error)
	GetByID(id uuid.UUID) (domain.Friendship, bool, error)
	UpdateStatus(id uuid.UUID, status domain.FriendshipStatus) (domain.Friendship, error)
	AreFriends(user1, user2 string) (bool, error)
	FriendsOf(username string) ([]string, error)
	PendingFor(username string) ([]domain.Friendship, error)
}

type FriendshipRepository struct {
	db *badger.DB
}

func NewFriendshipRepository(db *badger.DB) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

type diskFriendship struct {
	ID        uuid.UUID               `json:"id"`
	Sender    string                  `json:"sender"`
	Receiver  string                  `json:"receiver"`
	Status    domain.FriendshipStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// One record per unordered pair at "friend:{pairKey}", plus an id index at
// "friendid:{id}" so accept/reject can address the request directly. A
// rejected edge is overwritten by the next request for the same pair.
func friendPairKey(user1, user2 string) []byte {
	return []byte("friend:" + domain.PrivateRoomName(user1, user2))
}

func friendIDKey(id uuid.UUID) []byte {
	return []byte("friendid:" + id.String())
}

func (f *FriendshipRepository) CreateRequest(sender, receiver string) (domain.Friendship, error) {
	now := time.Now().UTC()
	friendship := domain.Friendship{
		ID:        uuid.New(),
		Sender:    sender,
		Receiver:  receiver,
		Status:    domain.FriendshipPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(fromFriendship(friendship))
	if err != nil {
		return domain.Friendship{}, err
	}

	err = f.db.Update(func(txn *badger.Txn) error {
		pairKey := friendPairKey(sender, receiver)
		item, err := txn.Get(pairKey)
		if err == nil {
			var existing diskFriendship
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
			if !toFriendship(existing).Terminal() {
				return errors.ErrFriendshipExists
			}
			// Rejected edge: drop the old id index before replacing.
			if err := txn.Delete(friendIDKey(existing.ID)); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(pairKey, data); err != nil {
			return err
		}
		return txn.Set(friendIDKey(friendship.ID), pairKey)
	})
	if err != nil {
		return domain.Friendship{}, err
	}
	return friendship, nil
}

func (f *FriendshipRepository) GetByID(id uuid.UUID) (domain.Friendship, bool, error) {
	var stored diskFriendship
	err := f.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(friendIDKey(id))
		if err != nil {
			return err
		}
		var pairKey []byte
		if err := item.Value(func(val []byte) error {
			pairKey = append([]byte{}, val...)
			return nil
		}); err != nil {
			return err
		}
		item, err = txn.Get(pairKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Friendship{}, false, nil
	}
	if err != nil {
		return domain.Friendship{}, false, err
	}
	return toFriendship(stored), true, nil
}

func (f *FriendshipRepository) UpdateStatus(id uuid.UUID, status domain.FriendshipStatus) (domain.Friendship, error) {
	friendship, found, err := f.GetByID(id)
	if err != nil {
		return domain.Friendship{}, err
	}
	if !found {
		return domain.Friendship{}, badger.ErrKeyNotFound
	}
	friendship.Status = status
	friendship.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(fromFriendship(friendship))
	if err != nil {
		return domain.Friendship{}, err
	}
	err = f.db.Update(func(txn *badger.Txn) error {
		return txn.Set(friendPairKey(friendship.Sender, friendship.Receiver), data)
	})
	return friendship, err
}

func (f *FriendshipRepository) AreFriends(user1, user2 string) (bool, error) {
	var status domain.FriendshipStatus
	err := f.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(friendPairKey(user1, user2))
		if err != nil {
			return err
		}
		var stored diskFriendship
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}
		status = stored.Status
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == domain.FriendshipAccepted, nil
}

// FriendsOf returns the usernames on the other side of every accepted edge.
func (f *FriendshipRepository) FriendsOf(username string) ([]string, error) {
	var friends []string
	err := f.scan(func(stored diskFriendship) {
		if stored.Status != domain.FriendshipAccepted {
			return
		}
		if strings.EqualFold(stored.Sender, username) {
			friends = append(friends, stored.Receiver)
		} else if strings.EqualFold(stored.Receiver, username) {
			friends = append(friends, stored.Sender)
		}
	})
	return friends, err
}

// PendingFor returns requests awaiting an answer from the given user.
func (f *FriendshipRepository) PendingFor(username string) ([]domain.Friendship, error) {
	var pending []domain.Friendship
	err := f.scan(func(stored diskFriendship) {
		if stored.Status == domain.FriendshipPending && strings.EqualFold(stored.Receiver, username) {
			pending = append(pending, toFriendship(stored))
		}
	})
	return pending, err
}

func (f *FriendshipRepository) scan(visit func(diskFriendship)) error {
	return f.db.View(func(txn *badger.Txn) error {
		prefix := []byte("friend:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored diskFriendship
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			})
			if err != nil {
				return err
			}
			visit(stored)
		}
		return nil
	})
}

func fromFriendship(friendship domain.Friendship) diskFriendship {
	return diskFriendship{
		ID:        friendship.ID,
		Sender:    friendship.Sender,
		Receiver:  friendship.Receiver,
		Status:    friendship.Status,
		CreatedAt: friendship.CreatedAt,
		UpdatedAt: friendship.UpdatedAt,
	}
}

func toFriendship(stored diskFriendship) domain.Friendship {
	return domain.Friendship{
		ID:        stored.ID,
		Sender:    stored.Sender,
		Receiver:  stored.Receiver,
		Status:    stored.Status,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}
}
