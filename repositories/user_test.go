package repositories

import (
	"testing"

	"chat-rooms/domain"
	"chat-rooms/errors"
	"github.com/stretchr/testify/require"
)

func Test_CreateUser_And_Fetch(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openBadger(t))

	created, err := repository.CreateUser("Alice", "hashed-secret", false)
	req.NoError(err)
	req.Equal("Alice", created.Username)

	fetched, found, err := repository.GetUserByUsername("alice")
	req.NoError(err)
	req.True(found)

	// Lookup is case-insensitive but the stored casing survives
	req.Equal("Alice", fetched.Username)
	req.Equal("hashed-secret", fetched.PasswordHash)
	req.Equal(created.ID, fetched.ID)
}

func Test_CreateUser_Refuses_Case_Insensitive_Duplicate(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openBadger(t))

	_, err := repository.CreateUser("Alice", "hash1", false)
	req.NoError(err)

	_, err = repository.CreateUser("ALICE", "hash2", false)
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_GetUserByUsername_Unknown(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openBadger(t))

	_, found, err := repository.GetUserByUsername("nobody")
	req.NoError(err)
	req.False(found)
}

func Test_EnsureSystemUser_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openBadger(t))

	req.NoError(repository.EnsureSystemUser())
	req.NoError(repository.EnsureSystemUser())

	system, found, err := repository.GetUserByUsername(domain.SystemUsername)
	req.NoError(err)
	req.True(found)
	req.True(system.IsMod)
}

func Test_SearchUsers_Excludes_Requester_And_System(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openBadger(t))
	req.NoError(repository.EnsureSystemUser())

	for _, name := range []string{"alice", "alina", "bob"} {
		_, err := repository.CreateUser(name, "hash", false)
		req.NoError(err)
	}

	// "al" matches alice and alina, but alice is the requester
	users, err := repository.SearchUsers("al", "alice", 10)
	req.NoError(err)
	req.Len(users, 1)
	req.Equal("alina", users[0].Username)

	// An empty term matches everyone except the requester and the system user
	users, err = repository.SearchUsers("", "bob", 10)
	req.NoError(err)
	req.Len(users, 2)
}

func Test_SearchUsers_Honours_Limit(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openBadger(t))

	for _, name := range []string{"carol", "carla", "carmen"} {
		_, err := repository.CreateUser(name, "hash", false)
		req.NoError(err)
	}

	users, err := repository.SearchUsers("car", "someone", 2)
	req.NoError(err)
	req.Len(users, 2)
}
