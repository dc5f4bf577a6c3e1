package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"chat-rooms/domain/event"
	"chat-rooms/errors"
	"chat-rooms/services"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // must be less than pongWait
	maxMessageSize = 4096
)

// Client owns one upgraded socket: a read pump dispatching client envelopes
// to the chat service and a write pump draining the connection's sink.
type Client struct {
	connectionID string
	authUsername string
	conn         *websocket.Conn
	sink         *ConnSink
	service      services.IChatService
	log          *slog.Logger
}

func NewClient(
	connectionID, authUsername string,
	conn *websocket.Conn,
	sink *ConnSink,
	service services.IChatService,
	log *slog.Logger,
) *Client {
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		connectionID: connectionID,
		authUsername: authUsername,
		conn:         conn,
		sink:         sink,
		service:      service,
		log:          log,
	}
}

// Run starts both pumps and blocks until the socket is gone.
func (c *Client) Run(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.service.Disconnect(ctx, c.connectionID)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Debug("Unexpected socket close", "connection", c.connectionID, "error", err)
			}
			return
		}
		c.dispatch(ctx, raw)
	}
}

// dispatch decodes one client envelope and routes it. Service failures come
// back to this client as error events; they never close the socket.
func (c *Client) dispatch(ctx context.Context, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.sendError(ctx, errors.Validation(errors.CodeInvalidData, "Malformed envelope"))
		return
	}

	var err error
	switch envelope.Event {
	case "join":
		var payload JoinPayload
		if err = decode(envelope.Data, &payload); err == nil {
			err = c.service.Join(ctx, c.connectionID, c.authUsername, payload.Username, payload.Room)
		}
	case "send":
		var payload SendPayload
		if err = decode(envelope.Data, &payload); err == nil {
			err = c.service.Send(ctx, c.connectionID, payload.Content, payload.Room)
		}
	case "leave":
		var payload LeavePayload
		if err = decode(envelope.Data, &payload); err == nil {
			err = c.service.Leave(ctx, c.connectionID, payload.Username, payload.Room)
		}
	case "join_private":
		var payload JoinPrivatePayload
		if err = decode(envelope.Data, &payload); err == nil {
			err = c.service.JoinPrivate(ctx, c.connectionID, payload.With)
		}
	case "send_private":
		var payload SendPrivatePayload
		if err = decode(envelope.Data, &payload); err == nil {
			err = c.service.SendPrivate(ctx, c.connectionID, payload.To, payload.Content)
		}
	case "ping":
		c.service.Ping(ctx, c.connectionID)
	default:
		err = errors.Validation(errors.CodeInvalidData, "Unknown event")
	}

	if err != nil {
		c.sendError(ctx, err)
	}
}

func (c *Client) sendError(ctx context.Context, err error) {
	coded := errors.AsError(err)
	if coded.Kind == errors.KindInternal {
		c.log.Error("Operation failed", "connection", c.connectionID, "error", err)
	}
	if consumeErr := c.sink.Consume(ctx, event.Error{Message: coded.Message, Code: coded.Code}); consumeErr != nil {
		c.log.Debug("Error event not delivered", "connection", c.connectionID, "error", consumeErr)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.Validation(errors.CodeInvalidData, "Missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Validation(errors.CodeInvalidData, "Malformed payload")
	}
	return nil
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.sink.Outgoing():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
