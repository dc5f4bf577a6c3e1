// Package errors defines the coded error taxonomy shared by every transport.
// Core operations return *Error values; only the outermost layer (WebSocket
// handler, REST handlers) translates them into wire payloads or HTTP statuses.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure for transport mapping.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindNotFound
	KindPersistence
	KindInternal
)

// Error carries a stable machine-readable code and a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Authorization(code, message string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Persistence(code, message string, cause error) *Error {
	return &Error{Kind: KindPersistence, Code: code, Message: message, cause: cause}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeServerError, Message: "An unexpected error occurred", cause: cause}
}

// AsError extracts the coded error, wrapping anything else as internal so the
// caller always gets a code to put on the wire.
func AsError(err error) *Error {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded
	}
	return Internal(err)
}

// Stable codes. The socket and REST paths must emit identical codes for the
// same failure.
const (
	CodeInvalidData      = "INVALID_DATA"
	CodeEmptyUsername    = "EMPTY_USERNAME"
	CodeInvalidRoom      = "INVALID_ROOM"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeUserBanned       = "USER_BANNED"
	CodeUserKicked       = "USER_KICKED"
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeEmptyContent     = "EMPTY_CONTENT"
	CodeMessageTooLong   = "MESSAGE_TOO_LONG"
	CodeSendFailed       = "SEND_FAILED"
	CodeNotYourIdentity  = "NOT_YOUR_IDENTITY"
	CodeEmptyTarget      = "EMPTY_TARGET"
	CodeSelfTarget       = "SELF_TARGET"
	CodeNotFriends       = "NOT_FRIENDS"
	CodeNotYourRequest   = "NOT_YOUR_REQUEST"
	CodeRequestNotFound  = "REQUEST_NOT_FOUND"
	CodeFriendshipExists = "FRIENDSHIP_EXISTS"
	CodeModRequired      = "MOD_REQUIRED"
	CodeSelfModeration   = "SELF_MODERATION"
	CodeUsernameTaken    = "USERNAME_TAKEN"
	CodeUsernameReserved = "USERNAME_RESERVED"
	CodeBadCredentials   = "INVALID_CREDENTIALS"
	CodeServerError      = "SERVER_ERROR"
)

// Store-level sentinels, mapped to coded errors by the services.
var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrUserAlreadyExists = fmt.Errorf("user already exists")
	ErrFriendshipExists  = fmt.Errorf("friendship or request already exists")
	ErrAlreadyBanned     = fmt.Errorf("user already banned")
	ErrInvalidPassword   = fmt.Errorf("password does not meet requirements")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
)
