package domain

import "time"

// KickDuration is the temporary suspension window. A kick is active strictly
// before KickedAt+KickDuration; at or after that instant the user is allowed.
const KickDuration = 12 * time.Hour

// Ban is a permanent suspension. At most one active record per user; issuing
// a second ban is a no-op.
type Ban struct {
	Username string
	BannedAt time.Time
}

// Kick is a temporary suspension. Issuing a kick on an already-kicked user
// refreshes KickedAt rather than stacking.
type Kick struct {
	Username string
	KickedAt time.Time
}

// ActiveAt reports whether the kick is still in force at the given instant.
func (k Kick) ActiveAt(now time.Time) bool {
	return now.Before(k.KickedAt.Add(KickDuration))
}
