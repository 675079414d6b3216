//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/clubsync/internal/domain"
)

func TestRepositoryUpsertsAreIdempotent(t *testing.T) {
	ctx := context.Background()

	repo, _ := startRepository(t, ctx)

	profile := domain.Profile{
		AthleteID:    4242,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		AvatarURL:    "https://cdn.example.com/ada.png",
		RefreshToken: "rt-initial",
	}

	require.NoError(t, repo.UpsertProfile(ctx, profile, domain.UpsertProfileOptions{Interactive: true}))
	require.NoError(t, repo.UpsertProfile(ctx, profile, domain.UpsertProfileOptions{}))

	stored, err := repo.GetProfile(ctx, profile.AthleteID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.ConnectionCount, "background upserts must not count as logins")
	require.NotNil(t, stored.LastLoginAt)
	require.Nil(t, stored.LastFullSyncAt)

	require.NoError(t, repo.UpsertProfile(ctx, profile, domain.UpsertProfileOptions{Interactive: true, FullSync: true}))
	stored, err = repo.GetProfile(ctx, profile.AthleteID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.ConnectionCount)
	require.NotNil(t, stored.LastFullSyncAt)

	activities := []domain.Activity{
		{ID: 1, AthleteID: profile.AthleteID, Name: "Morning Ride", DistanceKm: 42.5, ElevationGain: 310, MovingTimeSec: 5400, Type: "Ride", StartDate: time.Date(2026, 3, 8, 7, 30, 0, 0, time.UTC), UTCOffsetSec: 3600},
		{ID: 2, AthleteID: profile.AthleteID, Name: "Commute", DistanceKm: 9.1, MovingTimeSec: 1500, Type: "Ride", StartDate: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, repo.UpsertActivities(ctx, activities))

	// Re-sync with a corrected distance for activity 1.
	activities[0].DistanceKm = 43.0
	require.NoError(t, repo.UpsertActivities(ctx, activities))

	count, err := repo.CountByAthlete(ctx, profile.AthleteID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	recent, err := repo.RecentByAthlete(ctx, profile.AthleteID, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, int64(2), recent[0].ID)

	all, err := repo.ListByAthlete(ctx, profile.AthleteID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.InDelta(t, 43.0, all[1].DistanceKm, 1e-9)
}

func TestRepositoryGroupQueries(t *testing.T) {
	ctx := context.Background()

	repo, pool := startRepository(t, ctx)

	for _, p := range []domain.Profile{
		{AthleteID: 1, FirstName: "Ada", RefreshToken: "rt-1"},
		{AthleteID: 2, FirstName: "Grace", RefreshToken: "rt-2"},
		{AthleteID: 3, FirstName: "Edsger", RefreshToken: "rt-3"},
	} {
		require.NoError(t, repo.UpsertProfile(ctx, p, domain.UpsertProfileOptions{}))
	}

	_, err := pool.Exec(ctx, `INSERT INTO group_members (group_id, athlete_id, status) VALUES
        ('club-a', 1, 'approved'), ('club-a', 2, 'approved'), ('club-a', 3, 'pending')`)
	require.NoError(t, err)

	require.NoError(t, repo.UpsertActivities(ctx, []domain.Activity{
		{ID: 10, AthleteID: 1, DistanceKm: 50, Type: "Ride", StartDate: time.Date(2026, 1, 4, 9, 0, 0, 0, time.UTC)},
		{ID: 11, AthleteID: 1, DistanceKm: 20, Type: "Ride", StartDate: time.Date(2025, 12, 28, 9, 0, 0, 0, time.UTC)},
		{ID: 20, AthleteID: 2, DistanceKm: 30, Type: "Ride", StartDate: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
		{ID: 30, AthleteID: 3, DistanceKm: 99, Type: "Ride", StartDate: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)},
	}))

	acts, err := repo.ListByGroupYear(ctx, "club-a", 2026)
	require.NoError(t, err)
	require.Len(t, acts, 2, "pending members and other years are excluded")
	for _, a := range acts {
		require.NotEqual(t, int64(3), a.AthleteID)
		require.Equal(t, 2026, a.StartDate.Year())
	}
	require.Equal(t, "Grace", acts[0].FirstName)

	years, err := repo.ListYearsForGroup(ctx, "club-a")
	require.NoError(t, err)
	require.Equal(t, []int{2026, 2025}, years)
}

func TestRepositoryUpdateRefreshToken(t *testing.T) {
	ctx := context.Background()

	repo, _ := startRepository(t, ctx)

	require.ErrorIs(t, repo.UpdateRefreshToken(ctx, 999, "rt-new"), domain.ErrProfileNotFound)

	require.NoError(t, repo.UpsertProfile(ctx, domain.Profile{AthleteID: 999, RefreshToken: "rt-old"}, domain.UpsertProfileOptions{}))
	require.NoError(t, repo.UpdateRefreshToken(ctx, 999, "rt-new"))

	stored, err := repo.GetProfile(ctx, 999)
	require.NoError(t, err)
	require.Equal(t, "rt-new", stored.RefreshToken)
}

func startRepository(t *testing.T, ctx context.Context) (*Repository, *pgxpool.Pool) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("clubsync"),
		postgrescontainer.WithUsername("clubsync"),
		postgrescontainer.WithPassword("clubsync"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return NewRepository(pool), pool
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../migrations/0001_init.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
