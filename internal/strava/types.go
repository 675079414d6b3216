// Package strava implements the provider client: OAuth credential exchange,
// the paginated activity fetcher, and the bounded-concurrency orchestrator.
package strava

import "time"

const (
	// MaxPerPage is the provider's hard cap on per_page.
	MaxPerPage = 200
	// RecentPerPage is the small page size used by the recent-only fast path.
	RecentPerPage = 30
)

// ActivityRecord is the provider's wire shape for one activity. Distance and
// elevation stay in meters here; unit normalization happens at write time.
type ActivityRecord struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Distance           float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	MovingTime         int       `json:"moving_time"`
	Type               string    `json:"type"`
	StartDate          time.Time `json:"start_date"`
	UTCOffset          float64   `json:"utc_offset"`
}

// Athlete is the provider's athlete summary, returned alongside the
// authorization-code token exchange.
type Athlete struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	ProfileMedium string `json:"profile_medium"`
}

// Stats aggregates the provider's all-time totals per sport.
type Stats struct {
	Rides int
	Runs  int
	Swims int
}

// Total returns the combined activity count across sports.
func (s Stats) Total() int {
	return s.Rides + s.Runs + s.Swims
}
