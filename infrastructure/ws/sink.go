package ws

import (
	"context"
	"fmt"
	"log/slog"

	"chat-rooms/domain/event"
)

const sendBufferSize = 256

// ConnSink queues outgoing events for one connection. Consume never blocks:
// when the buffer is full the event is dropped and reported, so a slow
// client only hurts itself.
type ConnSink struct {
	connectionID string
	send         chan []byte
	log          *slog.Logger
}

func NewConnSink(connectionID string, log *slog.Logger) *ConnSink {
	return &ConnSink{
		connectionID: connectionID,
		send:         make(chan []byte, sendBufferSize),
		log:          log,
	}
}

func (s *ConnSink) Consume(ctx context.Context, e event.Event) error {
	frame, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	select {
	case s.send <- frame:
		return nil
	default:
		s.log.Debug("Send buffer full, event dropped",
			"connection", s.connectionID, "event", e.EventName())
		return fmt.Errorf("send buffer full for connection %s", s.connectionID)
	}
}

// Outgoing exposes the frames for the write pump.
func (s *ConnSink) Outgoing() <-chan []byte {
	return s.send
}
