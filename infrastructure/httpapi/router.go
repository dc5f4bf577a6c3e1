// Package httpapi exposes the REST surface: accounts, room history, friends,
// moderation and health. It shares the services (and therefore the error
// codes) with the WebSocket transport.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"chat-rooms/auth"
	"chat-rooms/contract"
	"chat-rooms/errors"
	"chat-rooms/services"
)

type contextKey string

const claimsKey contextKey = "claims"

// API bundles the handlers with their dependencies.
type API struct {
	log       *slog.Logger
	authSvc   services.IAuthService
	chatSvc   services.IChatService
	friendSvc services.IFriendService
	modSvc    services.IModerationService
	registry  contract.IRegistry
	wsHandler http.Handler
}

func NewAPI(
	log *slog.Logger,
	authSvc services.IAuthService,
	chatSvc services.IChatService,
	friendSvc services.IFriendService,
	modSvc services.IModerationService,
	registry contract.IRegistry,
	wsHandler http.Handler,
) *API {
	return &API{
		log:       log,
		authSvc:   authSvc,
		chatSvc:   chatSvc,
		friendSvc: friendSvc,
		modSvc:    modSvc,
		registry:  registry,
		wsHandler: wsHandler,
	}
}

// Router wires every route on a standard mux, using method and wildcard
// patterns.
func (a *API) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.Handle("GET /api/auth/me", a.authenticated(a.handleMe))
	mux.HandleFunc("GET /api/rooms", a.handleRooms)

	mux.Handle("GET /api/chat/messages/{room}", a.authenticated(a.handleHistory))
	mux.Handle("POST /api/chat/messages/{room}", a.authenticated(a.handlePostMessage))
	mux.Handle("GET /api/chat/search/{room}", a.authenticated(a.handleSearchMessages))

	mux.Handle("GET /api/friends", a.authenticated(a.handleFriends))
	mux.Handle("GET /api/users/search", a.authenticated(a.handleSearchUsers))
	mux.Handle("POST /api/friends/request/{username}", a.authenticated(a.handleFriendRequest))
	mux.Handle("POST /api/friends/accept/{id}", a.authenticated(a.handleFriendAccept))
	mux.Handle("POST /api/friends/reject/{id}", a.authenticated(a.handleFriendReject))
	mux.Handle("GET /api/friends/messages/{username}", a.authenticated(a.handlePrivateHistory))
	mux.Handle("POST /api/friends/messages/{username}", a.authenticated(a.handlePostPrivateMessage))

	mux.Handle("POST /api/mod/kick", a.authenticated(a.handleKick))
	mux.Handle("POST /api/mod/ban", a.authenticated(a.handleBan))

	mux.Handle("GET /ws", a.wsHandler)
	return mux
}

// authenticated validates the bearer token and stores the claims in the
// request context.
func (a *API) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			a.writeError(w, errors.Authorization(errors.CodeNotAuthenticated, "Authorization token is missing"))
			return
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			a.writeError(w, errors.Authorization(errors.CodeNotAuthenticated, "Invalid or expired token"))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func claimsFrom(r *http.Request) *auth.CustomClaims {
	claims, _ := r.Context().Value(claimsKey).(*auth.CustomClaims)
	return claims
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.Debug("Response write failed", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps the error taxonomy onto HTTP statuses. The code in the
// body matches the one the socket path emits for the same failure.
func (a *API) writeError(w http.ResponseWriter, err error) {
	coded := errors.AsError(err)
	status := http.StatusInternalServerError
	switch coded.Kind {
	case errors.KindValidation:
		status = http.StatusBadRequest
	case errors.KindAuthorization:
		if coded.Code == errors.CodeNotAuthenticated || coded.Code == errors.CodeBadCredentials {
			status = http.StatusUnauthorized
		} else {
			status = http.StatusForbidden
		}
	case errors.KindNotFound:
		status = http.StatusNotFound
	}
	if coded.Kind == errors.KindInternal || coded.Kind == errors.KindPersistence {
		a.log.Error("Request failed", "code", coded.Code, "error", err)
	}
	a.writeJSON(w, status, errorBody{Error: coded.Message, Code: coded.Code})
}

func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.writeError(w, errors.Validation(errors.CodeInvalidData, "Malformed JSON body"))
		return false
	}
	return true
}
