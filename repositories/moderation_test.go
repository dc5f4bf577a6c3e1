package repositories

import (
	"testing"
	"time"

	"chat-rooms/errors"
	"github.com/stretchr/testify/require"
)

func Test_PutBan_Is_Permanent_And_Single(t *testing.T) {
	req := require.New(t)
	repository := NewModerationRepository(openBadger(t))
	at := time.Now().UTC()

	req.NoError(repository.PutBan("alice", at))

	ban, found, err := repository.GetBan("ALICE")
	req.NoError(err)
	req.True(found)
	req.Equal("alice", ban.Username)
	req.WithinDuration(at, ban.BannedAt, time.Second)

	// A second ban does not overwrite the first timestamp
	err = repository.PutBan("alice", at.Add(time.Hour))
	req.ErrorIs(err, errors.ErrAlreadyBanned)

	ban, _, err = repository.GetBan("alice")
	req.NoError(err)
	req.WithinDuration(at, ban.BannedAt, time.Second)
}

func Test_PutKick_Restarts_The_Window(t *testing.T) {
	req := require.New(t)
	repository := NewModerationRepository(openBadger(t))
	first := time.Now().UTC().Add(-6 * time.Hour)
	second := time.Now().UTC()

	req.NoError(repository.PutKick("bob", first))
	req.NoError(repository.PutKick("bob", second))

	kick, found, err := repository.GetKick("Bob")
	req.NoError(err)
	req.True(found)
	req.WithinDuration(second, kick.KickedAt, time.Second)
}

func Test_Get_Sanctions_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewModerationRepository(openBadger(t))

	_, found, err := repository.GetBan("ghost")
	req.NoError(err)
	req.False(found)

	_, found, err = repository.GetKick("ghost")
	req.NoError(err)
	req.False(found)
}
