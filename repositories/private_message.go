//go:generate go run go.uber.org/mock/mockgen -source=private_message.go -destination=../mocks/mock_private_message_repository.go -package=mocks
package repositories

import (
	"chat-rooms/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IPrivateMessageRepository interface {
	StorePrivateMessage(message domain.PrivateMessage) error
	GetConversation(user1, user2 string) ([]domain.PrivateMessage, error)
}

type PrivateMessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewPrivateMessageRepository(db *badger.DB, log *slog.Logger) *PrivateMessageRepository {
	return &PrivateMessageRepository{db: db, log: log}
}

type diskPrivateMessage struct {
	ID      uuid.UUID `json:"id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Content string    `json:"content"`
	IsMod   bool      `json:"is_mod"`
	Read    bool      `json:"read"`
	At      time.Time `json:"at"`
}

// Keys share the canonical private-room identifier so one forward prefix scan
// returns the full conversation in chronological order, same padding scheme
// as public messages.
func privateMessageKey(message domain.PrivateMessage) []byte {
	return []byte(fmt.Sprintf("pm:%s:%019d:%s",
		message.Room(),
		message.At.UnixNano(),
		message.ID,
	))
}

func (p *PrivateMessageRepository) StorePrivateMessage(message domain.PrivateMessage) error {
	data, err := json.Marshal(fromPrivateMessage(message))
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(privateMessageKey(message), data)
	})
}

// GetConversation returns the full history between two users, oldest first.
func (p *PrivateMessageRepository) GetConversation(user1, user2 string) ([]domain.PrivateMessage, error) {
	var stored []diskPrivateMessage
	err := p.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("pm:%s:", domain.PrivateRoomName(user1, user2)))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dm diskPrivateMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dm)
			})
			if err != nil {
				return err
			}
			stored = append(stored, dm)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lo.Map(stored, func(dm diskPrivateMessage, _ int) domain.PrivateMessage {
		return toPrivateMessage(dm)
	}), nil
}

func fromPrivateMessage(message domain.PrivateMessage) diskPrivateMessage {
	return diskPrivateMessage{
		ID:      message.ID,
		From:    message.From,
		To:      message.To,
		Content: message.Content,
		IsMod:   message.IsMod,
		Read:    message.Read,
		At:      message.At,
	}
}

func toPrivateMessage(dm diskPrivateMessage) domain.PrivateMessage {
	return domain.PrivateMessage{
		ID:      dm.ID,
		From:    dm.From,
		To:      dm.To,
		Content: dm.Content,
		IsMod:   dm.IsMod,
		Read:    dm.Read,
		At:      dm.At,
	}
}
