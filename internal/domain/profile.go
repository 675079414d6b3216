package domain

import "time"

// Profile is one club member's linked Strava identity. Created on first
// successful authorization, mutated on every sync or login, never deleted
// by the sync engine.
type Profile struct {
	AthleteID    int64
	FirstName    string
	LastName     string
	AvatarURL    string
	RefreshToken string
	// LastLoginAt is set on interactive logins only.
	LastLoginAt *time.Time
	// LastFullSyncAt records the last time the full parallel history fetch ran.
	LastFullSyncAt *time.Time
	// ConnectionCount increments on interactive connections, not batch runs.
	ConnectionCount int
}
