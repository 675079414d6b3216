package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/clubsync/internal/domain"
)

func TestTotalsAggregatesAndRanks(t *testing.T) {
	start := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)

	activities := []domain.GroupActivity{
		{Activity: domain.Activity{ID: 1, AthleteID: 1, DistanceKm: 30, ElevationGain: 200, MovingTimeSec: 3600, StartDate: start}, FirstName: "A"},
		{Activity: domain.Activity{ID: 2, AthleteID: 1, DistanceKm: 30, ElevationGain: 900, MovingTimeSec: 3600, StartDate: start}, FirstName: "A"},
		{Activity: domain.Activity{ID: 3, AthleteID: 2, DistanceKm: 45, ElevationGain: 100, MovingTimeSec: 5400, StartDate: start}, FirstName: "B"},
	}

	byKm := Totals(activities, MetricKilometers)
	require.Len(t, byKm, 2)
	require.Equal(t, int64(1), byKm[0].AthleteID)
	require.Equal(t, 60.0, byKm[0].Kilometers)
	require.Equal(t, 2, byKm[0].Rides)
	require.Equal(t, 30.0, byKm[0].AvgKmPerRide)
	require.InDelta(t, 30.0, byKm[0].AvgSpeedKmh, 1e-9)

	byElev := Totals(activities, MetricElevation)
	require.Equal(t, int64(1), byElev[0].AthleteID)
	require.Equal(t, 1100.0, byElev[0].ElevationGain)

	byTime := Totals(activities, MetricTime)
	require.Equal(t, int64(1), byTime[0].AthleteID)
	require.Equal(t, 7200, byTime[0].MovingTimeSec)
}

func TestYearlySummaryNewestFirst(t *testing.T) {
	activities := []domain.Activity{
		{ID: 1, DistanceKm: 10, StartDate: time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, DistanceKm: 20, StartDate: time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 3, DistanceKm: 5, StartDate: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)},
	}

	summaries := YearlySummary(activities)
	require.Len(t, summaries, 2)
	require.Equal(t, 2026, summaries[0].Year)
	require.Equal(t, 25.0, summaries[0].Kilometers)
	require.Equal(t, 2, summaries[0].Rides)
	require.Equal(t, 2025, summaries[1].Year)
}

func TestTopByDistance(t *testing.T) {
	activities := []domain.Activity{
		{ID: 1, DistanceKm: 10},
		{ID: 2, DistanceKm: 80},
		{ID: 3, DistanceKm: 40},
	}

	top := TopByDistance(activities, 2)
	require.Len(t, top, 2)
	require.Equal(t, int64(2), top[0].ID)
	require.Equal(t, int64(3), top[1].ID)

	// Asking for more than available returns everything.
	require.Len(t, TopByDistance(activities, 10), 3)
}
