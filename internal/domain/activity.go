// Package domain defines the core types shared by the sync engine and scoring code.
package domain

import "time"

// Activity is one recorded exercise session as stored in PostgreSQL.
// Distance is normalized to kilometers exactly once, when the reconciler
// writes the row; readers must never reapply the meters conversion.
type Activity struct {
	ID            int64
	AthleteID     int64
	Name          string
	DistanceKm    float64
	ElevationGain float64
	MovingTimeSec int
	Type          string
	StartDate     time.Time
	// UTCOffsetSec is the provider-reported offset of the activity's start,
	// kept so time-of-day filters (Sunday morning rides) run in local time.
	UTCOffsetSec int
}

// LocalStart returns the activity start in the timezone it was recorded in.
func (a Activity) LocalStart() time.Time {
	return a.StartDate.In(time.FixedZone("", a.UTCOffsetSec))
}

// GroupActivity is an activity row joined with the owning athlete's profile,
// the shape consumed by leaderboard and scoring queries.
type GroupActivity struct {
	Activity
	FirstName string
	AvatarURL string
}
