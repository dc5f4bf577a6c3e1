// Package services implements the application operations on top of the
// repositories and the runtime. All business rules live here; transports
// only translate payloads and error codes.
package services

import (
	stderrors "errors"
	"time"

	"chat-rooms/auth"
	"chat-rooms/domain"
	"chat-rooms/errors"
	"chat-rooms/repositories"
)

type IAuthService interface {
	Register(username, password string) (domain.User, Token, error)
	Login(username, password string) (domain.User, Token, error)
}

type Token string

type AuthService struct {
	users         repositories.IUserRepository
	tokenDuration time.Duration
}

func NewAuthService(users repositories.IUserRepository, tokenDuration time.Duration) *AuthService {
	return &AuthService{users: users, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(username, password string) (domain.User, Token, error) {
	// Validate business rules before any expensive cryptographic operation
	if err := auth.ValidateRegister(auth.RegisterRequest{Username: username, Password: password}); err != nil {
		return domain.User{}, "", err
	}

	// Hashing happens in the service layer so the repository never sees a
	// plain password
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", errors.Internal(err)
	}

	user, err := s.users.CreateUser(username, hashedPassword, false)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			return domain.User{}, "", errors.Validation(errors.CodeUsernameTaken, "This username is already taken")
		}
		return domain.User{}, "", errors.Internal(err)
	}

	token, err := auth.GenerateToken(user.Username, user.IsMod, s.tokenDuration)
	if err != nil {
		return domain.User{}, "", errors.Internal(err)
	}
	return user, Token(token), nil
}

func (s *AuthService) Login(username, password string) (domain.User, Token, error) {
	// A single generic failure for both unknown user and wrong password,
	// to prevent user enumeration
	badCredentials := errors.Authorization(errors.CodeBadCredentials, "Invalid username or password")

	user, found, err := s.users.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, "", errors.Internal(err)
	}
	if !found || domain.IsReservedUsername(username) {
		return domain.User{}, "", badCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", badCredentials
	}

	token, err := auth.GenerateToken(user.Username, user.IsMod, s.tokenDuration)
	if err != nil {
		return domain.User{}, "", errors.Internal(err)
	}
	return user, Token(token), nil
}
