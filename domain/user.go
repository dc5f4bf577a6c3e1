package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account record. Looked up fresh per gated operation so that
// moderation changes are reflected promptly.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	IsMod        bool
	CreatedAt    time.Time
}
