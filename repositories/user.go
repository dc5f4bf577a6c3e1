//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(username, passwordHash string, isMod bool) (domain.User, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	SearchUsers(term, exclude string, limit int) ([]domain.User, error)
	EnsureSystemUser() error
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// diskUser is the stored shape of a user record.
type diskUser struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	IsMod        bool      `json:"is_mod"`
	CreatedAt    time.Time `json:"created_at"`
}

// userKey lowercases the username so uniqueness is case-insensitive.
func userKey(username string) []byte {
	return []byte("user:" + strings.ToLower(username))
}

// CreateUser persists a new user. The original casing of the username is kept
// in the record; the key is lowercased so "Alice" and "alice" collide.
func (u *UserRepository) CreateUser(username, passwordHash string, isMod bool) (domain.User, error) {
	user := domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		IsMod:        isMod,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := userKey(username)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUserByUsername(username string) (domain.User, bool, error) {
	var stored diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return toUser(stored), true, nil
}

// SearchUsers scans the user namespace for usernames containing term
// (case-insensitive), excluding the requesting user and the system identity.
func (u *UserRepository) SearchUsers(term, exclude string, limit int) ([]domain.User, error) {
	needle := strings.ToLower(term)
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if len(users) == limit {
				break
			}
			var stored diskUser
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			})
			if err != nil {
				return err
			}
			if stored.Username == domain.SystemUsername ||
				strings.EqualFold(stored.Username, exclude) ||
				!strings.Contains(strings.ToLower(stored.Username), needle) {
				continue
			}
			users = append(users, toUser(stored))
		}
		return nil
	})
	return users, err
}

// EnsureSystemUser creates the reserved system identity on first boot.
// The record carries no usable password.
func (u *UserRepository) EnsureSystemUser() error {
	_, found, err := u.GetUserByUsername(domain.SystemUsername)
	if err != nil || found {
		return err
	}
	_, err = u.CreateUser(domain.SystemUsername, "no-password-system-user", true)
	if err == errors.ErrUserAlreadyExists {
		return nil
	}
	return err
}

func fromUser(user domain.User) diskUser {
	return diskUser{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		IsMod:        user.IsMod,
		CreatedAt:    user.CreatedAt,
	}
}

func toUser(stored diskUser) domain.User {
	return domain.User{
		ID:           stored.ID,
		Username:     stored.Username,
		PasswordHash: stored.PasswordHash,
		IsMod:        stored.IsMod,
		CreatedAt:    stored.CreatedAt,
	}
}
