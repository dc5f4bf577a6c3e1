// Package moderation decides whether a user may act (ban/kick gate) and
// masks forbidden words in message content before broadcast.
package moderation

import (
	"chat-rooms/repositories"
	"time"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allowed Decision = iota
	DeniedBanned
	DeniedKicked
)

// Gate authorizes send/join actions against moderation state. Records are
// read fresh from the store on every call so a mid-session kick or ban takes
// effect on the user's next action.
type Gate struct {
	store repositories.IModerationRepository
	now   func() time.Time
}

func NewGate(store repositories.IModerationRepository) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Authorize returns Allowed unless an active ban or kick exists. Bans are
// permanent and checked first. A kick is active strictly before
// kickedAt+12h; expired kicks are treated as Allowed without deleting the
// record (lazy expiry).
func (g *Gate) Authorize(username string) (Decision, error) {
	if _, banned, err := g.store.GetBan(username); err != nil {
		return Allowed, err
	} else if banned {
		return DeniedBanned, nil
	}

	kick, found, err := g.store.GetKick(username)
	if err != nil {
		return Allowed, err
	}
	if found && kick.ActiveAt(g.now().UTC()) {
		return DeniedKicked, nil
	}
	return Allowed, nil
}
