package domain

import "context"

// ProfileStore captures persistence operations on profiles. All writes are
// upserts keyed by athlete ID.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, profile Profile, opts UpsertProfileOptions) error
	// UpdateRefreshToken persists a rotated refresh token on its own. The
	// batch driver calls it immediately after a successful token exchange,
	// before the potentially slow fetch, so a later failure never loses a
	// rotated token.
	UpdateRefreshToken(ctx context.Context, athleteID int64, refreshToken string) error
	GetProfile(ctx context.Context, athleteID int64) (*Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
}

// UpsertProfileOptions control which sync metadata the profile upsert touches.
type UpsertProfileOptions struct {
	// Interactive gates the connection counter and last-login timestamp.
	// False for batch runs so repeated syncs do not double-count logins.
	Interactive bool
	// FullSync marks the row with a fresh last-full-sync timestamp.
	FullSync bool
}

// ActivityStore captures persistence operations on activities. Upserts are
// keyed by (athlete_id, activity_id); applying the same batch twice leaves
// storage unchanged.
type ActivityStore interface {
	UpsertActivities(ctx context.Context, activities []Activity) error
	CountByAthlete(ctx context.Context, athleteID int64) (int, error)
	RecentByAthlete(ctx context.Context, athleteID int64, limit int) ([]Activity, error)
	ListByAthlete(ctx context.Context, athleteID int64) ([]Activity, error)
	ListByGroupYear(ctx context.Context, groupID string, year int) ([]GroupActivity, error)
	ListYearsForGroup(ctx context.Context, groupID string) ([]int, error)
}

// Store is the full query/upsert surface the sync engine and read API consume.
type Store interface {
	ProfileStore
	ActivityStore
}
