//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-rooms/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	GetRecent(room string) ([]domain.Message, error)
	PruneBefore(cutoff time.Time) (int, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored shape of a public message.
type diskMessage struct {
	ID       uuid.UUID `json:"id"`
	Room     string    `json:"room"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	IsMod    bool      `json:"is_mod"`
	IsSystem bool      `json:"is_system"`
	At       time.Time `json:"at"`
}

// messageKey formats "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		message.Room,
		message.At.UnixNano(),
		message.ID,
	))
}

func (m *MessageRepository) StoreMessage(message domain.Message) error {
	data, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), data)
	})
}

// GetRecent retrieves the most recent messages for a room in chronological
// order. Thanks to the padded timestamp in the key a reverse prefix scan
// yields newest-first; the slice is flipped before returning.
func (m *MessageRepository) GetRecent(room string) ([]domain.Message, error) {
	var stored []diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", room))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this room, then walk back.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(stored) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			var dm diskMessage
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

	lo.Reverse(stored)
	return lo.Map(stored, func(dm diskMessage, _ int) domain.Message {
		return toMessage(dm)
	}), nil
}

// PruneBefore deletes public messages older than the cutoff across all rooms
// and returns the number of deleted records. The timestamp is parsed from the
// key so values are never loaded.
func (m *MessageRepository) PruneBefore(cutoff time.Time) (int, error) {
	var stale [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			parts := strings.Split(key, ":")
			if len(parts) < 4 {
				continue
			}
			tsNano, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
			if err != nil {
				m.log.Warn("Unparseable message key, skipping", "key", key)
				continue
			}
			if time.Unix(0, tsNano).Before(cutoff) {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:       message.ID,
		Room:     message.Room,
		Username: message.Username,
		Content:  message.Content,
		IsMod:    message.IsMod,
		IsSystem: message.IsSystem,
		At:       message.At,
	}
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:       dm.ID,
		Room:     dm.Room,
		Username: dm.Username,
		Content:  dm.Content,
		IsMod:    dm.IsMod,
		IsSystem: dm.IsSystem,
		At:       dm.At,
	}
}
