package domain

// Member is one entry of a room's live member list.
type Member struct {
	Username string
	IsMod    bool
}

// Eviction describes the presence cleanup performed for one connection, used
// to drive the departure broadcasts that follow a disconnect or sweep.
type Eviction struct {
	ConnectionID string
	Username     string
	Rooms        []string
}
