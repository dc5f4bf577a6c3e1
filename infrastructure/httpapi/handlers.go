package httpapi

import (
	"net/http"
	"time"

	"chat-rooms/domain"
	"chat-rooms/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var startedAt = time.Now().UTC()

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userBody struct {
	Username string `json:"username"`
	IsMod    bool   `json:"is_mod"`
}

type sessionBody struct {
	Token string   `json:"token"`
	User  userBody `json:"user"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	connections, rooms := a.registry.Stats()
	a.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"server_time":    time.Now().UTC(),
		"uptime_seconds": int(time.Since(startedAt).Seconds()),
		"connections":    connections,
		"active_rooms":   rooms,
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !a.decodeBody(w, r, &body) {
		return
	}
	user, token, err := a.authSvc.Register(body.Username, body.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, sessionBody{
		Token: string(token),
		User:  userBody{Username: user.Username, IsMod: user.IsMod},
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !a.decodeBody(w, r, &body) {
		return
	}
	user, token, err := a.authSvc.Login(body.Username, body.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, sessionBody{
		Token: string(token),
		User:  userBody{Username: user.Username, IsMod: user.IsMod},
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	a.writeJSON(w, http.StatusOK, userBody{Username: claims.Username, IsMod: claims.IsMod})
}

func (a *API) handleRooms(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{"rooms": domain.KnownRooms})
}

type messageBody struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsMod     bool      `json:"is_mod"`
	IsSystem  bool      `json:"is_system"`
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	messages, err := a.chatSvc.History(room)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"room": room,
		"messages": lo.Map(messages, func(m domain.Message, _ int) messageBody {
			return messageBody{
				ID:        m.ID.String(),
				Username:  m.Username,
				Content:   m.Content,
				Timestamp: m.At,
				IsMod:     m.IsMod,
				IsSystem:  m.IsSystem,
			}
		}),
	})
}

type postMessageBody struct {
	Content string `json:"content"`
}

func (a *API) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var body postMessageBody
	if !a.decodeBody(w, r, &body) {
		return
	}
	message, err := a.chatSvc.PostPublic(r.Context(), claims.Username, claims.IsMod, r.PathValue("room"), body.Content)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"message_id": message.ID.String(),
		"timestamp":  message.At,
	})
}

func (a *API) handleSearchMessages(w http.ResponseWriter, r *http.Request) {
	hits, err := a.chatSvc.SearchMessages(r.Context(), r.PathValue("room"), r.URL.Query().Get("q"), 20)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (a *API) handleFriends(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	friends, err := a.friendSvc.Friends(claims.Username)
	if err != nil {
		a.writeError(w, err)
		return
	}
	pending, err := a.friendSvc.PendingRequests(claims.Username)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"friends": friends,
		"pending": lo.Map(pending, func(f domain.Friendship, _ int) map[string]any {
			return map[string]any{
				"id":         f.ID.String(),
				"sender":     f.Sender,
				"created_at": f.CreatedAt,
			}
		}),
	})
}

func (a *API) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	users, err := a.friendSvc.SearchUsers(r.URL.Query().Get("q"), claims.Username)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"users": lo.Map(users, func(u domain.User, _ int) userBody {
			return userBody{Username: u.Username, IsMod: u.IsMod}
		}),
	})
}

func (a *API) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	request, err := a.friendSvc.SendRequest(claims.Username, r.PathValue("username"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"id":     request.ID.String(),
		"status": request.Status,
	})
}

func (a *API) handleFriendAccept(w http.ResponseWriter, r *http.Request) {
	a.settleFriendRequest(w, r, true)
}

func (a *API) handleFriendReject(w http.ResponseWriter, r *http.Request) {
	a.settleFriendRequest(w, r, false)
}

func (a *API) settleFriendRequest(w http.ResponseWriter, r *http.Request, accept bool) {
	claims := claimsFrom(r)
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		a.writeError(w, errors.Validation(errors.CodeInvalidData, "Malformed request id"))
		return
	}

	var settled domain.Friendship
	if accept {
		settled, err = a.friendSvc.Accept(claims.Username, requestID)
	} else {
		settled, err = a.friendSvc.Reject(claims.Username, requestID)
	}
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"id":     settled.ID.String(),
		"status": settled.Status,
	})
}

type privateMessageBody struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *API) handlePrivateHistory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	other := r.PathValue("username")
	conversation, err := a.chatSvc.PrivateHistory(claims.Username, other)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"with": other,
		"messages": lo.Map(conversation, func(m domain.PrivateMessage, _ int) privateMessageBody {
			return privateMessageBody{
				ID:        m.ID.String(),
				From:      m.From,
				To:        m.To,
				Content:   m.Content,
				Timestamp: m.At,
			}
		}),
	})
}

func (a *API) handlePostPrivateMessage(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var body postMessageBody
	if !a.decodeBody(w, r, &body) {
		return
	}
	message, err := a.chatSvc.PostPrivate(r.Context(), claims.Username, claims.IsMod, r.PathValue("username"), body.Content)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"message_id": message.ID.String(),
		"timestamp":  message.At,
	})
}

type sanctionBody struct {
	Username string `json:"username"`
}

func (a *API) handleKick(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var body sanctionBody
	if !a.decodeBody(w, r, &body) {
		return
	}
	if err := a.modSvc.Kick(r.Context(), claims.Username, body.Username); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"status": "kicked", "username": body.Username})
}

func (a *API) handleBan(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var body sanctionBody
	if !a.decodeBody(w, r, &body) {
		return
	}
	if err := a.modSvc.Ban(r.Context(), claims.Username, body.Username); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"status": "banned", "username": body.Username})
}
