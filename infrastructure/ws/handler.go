package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"chat-rooms/auth"
	"chat-rooms/services"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated requests to WebSocket sessions.
type Handler struct {
	log            *slog.Logger
	service        services.IChatService
	allowedOrigins []string
}

func NewHandler(log *slog.Logger, service services.IChatService, allowedOrigins []string) *Handler {
	return &Handler{log: log, service: service, allowedOrigins: allowedOrigins}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WebSocket upgrades, so the token also
	// travels as a query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	connectionID := uuid.NewString()
	sink := NewConnSink(connectionID, h.log)
	client := NewClient(connectionID, claims.Username, conn, sink, h.service, h.log)

	h.log.Info("Connection opened", "connection", connectionID, "username", claims.Username)
	h.service.Connect(r.Context(), connectionID, sink)
	client.Run(r.Context())
	h.log.Info("Connection closed", "connection", connectionID, "username", claims.Username)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
