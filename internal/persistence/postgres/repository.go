package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/clubsync/internal/domain"
)

// Repository provides Postgres-backed persistence for athlete profiles and activities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertProfile inserts or refreshes a profile keyed by the athlete's Strava ID.
// The connection counter and last-login timestamp only move on interactive
// logins; the full-sync timestamp only moves when opts.FullSync is set.
func (r *Repository) UpsertProfile(ctx context.Context, profile domain.Profile, opts domain.UpsertProfileOptions) error {
	const stmt = `INSERT INTO profiles (athlete_id, firstname, lastname, avatar_url, refresh_token, last_login_at, last_full_sync_at, connection_count)
        VALUES ($1, $2, $3, $4, $5,
                CASE WHEN $6 THEN now() END,
                CASE WHEN $7 THEN now() END,
                CASE WHEN $6 THEN 1 ELSE 0 END)
        ON CONFLICT (athlete_id) DO UPDATE SET
                firstname = EXCLUDED.firstname,
                lastname = EXCLUDED.lastname,
                avatar_url = EXCLUDED.avatar_url,
                refresh_token = EXCLUDED.refresh_token,
                last_login_at = CASE WHEN $6 THEN now() ELSE profiles.last_login_at END,
                last_full_sync_at = CASE WHEN $7 THEN now() ELSE profiles.last_full_sync_at END,
                connection_count = profiles.connection_count + CASE WHEN $6 THEN 1 ELSE 0 END`

	_, err := r.pool.Exec(ctx, stmt,
		profile.AthleteID,
		profile.FirstName,
		profile.LastName,
		profile.AvatarURL,
		profile.RefreshToken,
		opts.Interactive,
		opts.FullSync,
	)
	return err
}

// UpdateRefreshToken persists a rotated refresh token for an existing profile.
func (r *Repository) UpdateRefreshToken(ctx context.Context, athleteID int64, token string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET refresh_token=$2 WHERE athlete_id=$1`, athleteID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// GetProfile retrieves a single profile by athlete ID.
func (r *Repository) GetProfile(ctx context.Context, athleteID int64) (*domain.Profile, error) {
	const query = `SELECT athlete_id, firstname, lastname, avatar_url, refresh_token, last_login_at, last_full_sync_at, connection_count
        FROM profiles WHERE athlete_id=$1`

	row := r.pool.QueryRow(ctx, query, athleteID)
	var p domain.Profile
	if err := row.Scan(&p.AthleteID, &p.FirstName, &p.LastName, &p.AvatarURL, &p.RefreshToken, &p.LastLoginAt, &p.LastFullSyncAt, &p.ConnectionCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns every connected profile ordered by athlete ID.
func (r *Repository) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	const query = `SELECT athlete_id, firstname, lastname, avatar_url, refresh_token, last_login_at, last_full_sync_at, connection_count
        FROM profiles ORDER BY athlete_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.AthleteID, &p.FirstName, &p.LastName, &p.AvatarURL, &p.RefreshToken, &p.LastLoginAt, &p.LastFullSyncAt, &p.ConnectionCount); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// UpsertActivities writes a batch of activities keyed by (athlete_id, activity_id).
// Re-syncing the same window overwrites rows in place, so repeated runs converge
// on the provider's view without duplicating anything.
func (r *Repository) UpsertActivities(ctx context.Context, activities []domain.Activity) error {
	if len(activities) == 0 {
		return nil
	}

	const stmt = `INSERT INTO activities (activity_id, athlete_id, name, distance_km, elevation_gain, moving_time_sec, type, start_date, utc_offset_sec)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (athlete_id, activity_id) DO UPDATE SET
                name = EXCLUDED.name,
                distance_km = EXCLUDED.distance_km,
                elevation_gain = EXCLUDED.elevation_gain,
                moving_time_sec = EXCLUDED.moving_time_sec,
                type = EXCLUDED.type,
                start_date = EXCLUDED.start_date,
                utc_offset_sec = EXCLUDED.utc_offset_sec`

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, a := range activities {
		batch.Queue(stmt,
			a.ID,
			a.AthleteID,
			a.Name,
			a.DistanceKm,
			a.ElevationGain,
			a.MovingTimeSec,
			a.Type,
			a.StartDate,
			a.UTCOffsetSec,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range activities {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CountByAthlete returns the number of stored activities for an athlete.
func (r *Repository) CountByAthlete(ctx context.Context, athleteID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM activities WHERE athlete_id=$1`, athleteID).Scan(&count)
	return count, err
}

// RecentByAthlete returns the newest activities for an athlete, most recent first.
func (r *Repository) RecentByAthlete(ctx context.Context, athleteID int64, limit int) ([]domain.Activity, error) {
	const query = activityColumns + ` WHERE athlete_id=$1 ORDER BY start_date DESC, activity_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, athleteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

// ListByAthlete returns every stored activity for an athlete, most recent first.
func (r *Repository) ListByAthlete(ctx context.Context, athleteID int64) ([]domain.Activity, error) {
	const query = activityColumns + ` WHERE athlete_id=$1 ORDER BY start_date DESC, activity_id DESC`

	rows, err := r.pool.Query(ctx, query, athleteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

// ListByGroupYear returns all activities recorded in a calendar year by approved
// members of a group, joined with the owning profile for display.
func (r *Repository) ListByGroupYear(ctx context.Context, groupID string, year int) ([]domain.GroupActivity, error) {
	const query = `SELECT a.activity_id, a.athlete_id, a.name, a.distance_km, a.elevation_gain, a.moving_time_sec, a.type, a.start_date, a.utc_offset_sec,
                p.firstname, p.avatar_url
        FROM activities a
        JOIN profiles p ON p.athlete_id = a.athlete_id
        JOIN group_members gm ON gm.athlete_id = a.athlete_id
        WHERE gm.group_id = $1 AND gm.status = 'approved'
          AND a.start_date >= make_date($2, 1, 1)
          AND a.start_date < make_date($2 + 1, 1, 1)
        ORDER BY a.start_date DESC, a.activity_id DESC`

	rows, err := r.pool.Query(ctx, query, groupID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GroupActivity
	for rows.Next() {
		var ga domain.GroupActivity
		if err := rows.Scan(&ga.ID, &ga.AthleteID, &ga.Name, &ga.DistanceKm, &ga.ElevationGain, &ga.MovingTimeSec, &ga.Type, &ga.StartDate, &ga.UTCOffsetSec, &ga.FirstName, &ga.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, ga)
	}
	return out, rows.Err()
}

// ListYearsForGroup returns the calendar years with at least one group activity,
// newest first.
func (r *Repository) ListYearsForGroup(ctx context.Context, groupID string) ([]int, error) {
	const query = `SELECT DISTINCT date_part('year', a.start_date)::int AS year
        FROM activities a
        JOIN group_members gm ON gm.athlete_id = a.athlete_id
        WHERE gm.group_id = $1 AND gm.status = 'approved'
        ORDER BY year DESC`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

const activityColumns = `SELECT activity_id, athlete_id, name, distance_km, elevation_gain, moving_time_sec, type, start_date, utc_offset_sec
        FROM activities`

func scanActivities(rows pgx.Rows) ([]domain.Activity, error) {
	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.AthleteID, &a.Name, &a.DistanceKm, &a.ElevationGain, &a.MovingTimeSec, &a.Type, &a.StartDate, &a.UTCOffsetSec); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
