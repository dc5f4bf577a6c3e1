//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_message_index.go -package=mocks
package repositories

import (
	"chat-rooms/domain"
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
)

type IMessageIndex interface {
	Index(message domain.Message) error
	Search(ctx context.Context, room, terms string, limit int) ([]MessageHit, error)
}

// MessageHit is one full-text search result.
type MessageHit struct {
	ID       string
	Room     string
	Username string
	Content  string
}

// MessageIndex maintains the bluge full-text index of public messages.
// Indexing is best-effort: the store remains the source of truth and a failed
// index write never fails the send path.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

func (m *MessageIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("room", message.Room).StoreValue()).
		AddField(bluge.NewKeywordField("username", message.Username).StoreValue()).
		AddField(bluge.NewDateTimeField("at", message.At))
	return m.writer.Update(doc.ID(), doc)
}

// Search runs a room-scoped match query over message content.
func (m *MessageIndex) Search(ctx context.Context, room, terms string, limit int) ([]MessageHit, error) {
	reader, err := m.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			m.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(bluge.NewTermQuery(room).SetField("room"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []MessageHit
	match, err := iterator.Next()
	for err == nil && match != nil {
		var hit MessageHit
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "room":
				hit.Room = string(value)
			case "username":
				hit.Username = string(value)
			case "content":
				hit.Content = string(value)
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
