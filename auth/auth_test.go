package auth

import (
	"strings"
	"testing"
	"time"

	"chat-rooms/errors"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "correct horse battery staple"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(match)
}

func TestGenerateAndValidateToken(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("alice", true, time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", claims.Username)
	req.True(claims.IsMod)
}

func TestValidateToken_Expired(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("alice", false, -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func TestValidateToken_Garbage(t *testing.T) {
	req := require.New(t)
	_, err := ValidateToken("not-a-token")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name     string
		req      RegisterRequest
		wantCode string
	}{
		{"Valid request", RegisterRequest{"alice", "secret1"}, ""},
		{"Username too short", RegisterRequest{"al", "secret1"}, errors.CodeInvalidData},
		{"Username too long", RegisterRequest{strings.Repeat("a", 21), "secret1"}, errors.CodeInvalidData},
		{"Username with surrounding space", RegisterRequest{" alice ", "secret1"}, errors.CodeInvalidData},
		{"Reserved username", RegisterRequest{"system", "secret1"}, errors.CodeUsernameReserved},
		{"Reserved username uppercase", RegisterRequest{"SYSTEM", "secret1"}, errors.CodeUsernameReserved},
		{"Password too short", RegisterRequest{"alice", "short"}, errors.CodeInvalidData},
		{"Empty username", RegisterRequest{"", "secret1"}, errors.CodeInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantCode == "" {
				req.NoError(err)
				return
			}
			req.Error(err)
			req.Equal(tt.wantCode, errors.AsError(err).Code)
		})
	}
}
