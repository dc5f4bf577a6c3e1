//go:generate go run go.uber.org/mock/mockgen -source=moderation.go -destination=../mocks/mock_moderation_repository.go -package=mocks
package repositories

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"encoding/json"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IModerationRepository interface {
	PutBan(username string, at time.Time) error
	GetBan(username string) (domain.Ban, bool, error)
	PutKick(username string, at time.Time) error
	GetKick(username string) (domain.Kick, bool, error)
}

type ModerationRepository struct {
	db *badger.DB
}

func NewModerationRepository(db *badger.DB) *ModerationRepository {
	return &ModerationRepository{db: db}
}

type diskBan struct {
	Username string    `json:"username"`
	BannedAt time.Time `json:"banned_at"`
}

type diskKick struct {
	Username string    `json:"username"`
	KickedAt time.Time `json:"kicked_at"`
}

func banKey(username string) []byte {
	return []byte("ban:" + strings.ToLower(username))
}

func kickKey(username string) []byte {
	return []byte("kick:" + strings.ToLower(username))
}

// PutBan records a permanent ban. An existing ban is left untouched and
// reported via ErrAlreadyBanned so the caller can treat it as a no-op.
func (m *ModerationRepository) PutBan(username string, at time.Time) error {
	data, err := json.Marshal(diskBan{Username: username, BannedAt: at})
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		key := banKey(username)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrAlreadyBanned
		}
		return txn.Set(key, data)
	})
}

func (m *ModerationRepository) GetBan(username string) (domain.Ban, bool, error) {
	var stored diskBan
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(banKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Ban{}, false, nil
	}
	if err != nil {
		return domain.Ban{}, false, err
	}
	return domain.Ban{Username: stored.Username, BannedAt: stored.BannedAt}, true, nil
}

// PutKick records or refreshes a kick; a repeated kick restarts the window
// rather than stacking.
func (m *ModerationRepository) PutKick(username string, at time.Time) error {
	data, err := json.Marshal(diskKick{Username: username, KickedAt: at})
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(kickKey(username), data)
	})
}

func (m *ModerationRepository) GetKick(username string) (domain.Kick, bool, error) {
	var stored diskKick
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(kickKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Kick{}, false, nil
	}
	if err != nil {
		return domain.Kick{}, false, err
	}
	return domain.Kick{Username: stored.Username, KickedAt: stored.KickedAt}, true, nil
}
