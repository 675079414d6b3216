package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/clubsync/internal/domain"
)

func groupRide(athleteID int64, name string, km float64, start time.Time) domain.GroupActivity {
	return domain.GroupActivity{
		Activity: domain.Activity{
			ID:         start.UnixNano(),
			AthleteID:  athleteID,
			DistanceKm: km,
			Type:       "Ride",
			StartDate:  start,
		},
		FirstName: name,
	}
}

func TestMonthlyPointsSingleMonth(t *testing.T) {
	march := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

	activities := []domain.GroupActivity{
		groupRide(1, "A", 40, march),
		groupRide(2, "B", 25, march.Add(24*time.Hour)),
		groupRide(3, "C", 10, march.Add(48*time.Hour)),
	}

	scores, standings := MonthlyPoints(activities)

	require.Len(t, scores, 3)
	require.Equal(t, 3, scores[0].Points)
	require.Equal(t, int64(1), scores[0].AthleteID)
	require.Equal(t, 2, scores[1].Points)
	require.Equal(t, int64(2), scores[1].AthleteID)
	require.Equal(t, 1, scores[2].Points)
	require.Equal(t, int64(3), scores[2].AthleteID)

	// Annual totals equal the monthly points when each athlete only rode in March.
	require.Len(t, standings, 3)
	require.Equal(t, 3, standings[0].TotalPoints)
	require.Equal(t, 1, standings[2].TotalPoints)
}

func TestMonthlyPointsSplitsActivitiesPerAthlete(t *testing.T) {
	march := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	// B rides twice for 30 km total, beating A's single 28 km ride.
	activities := []domain.GroupActivity{
		groupRide(1, "A", 28, march),
		groupRide(2, "B", 12, march.Add(2*time.Hour)),
		groupRide(2, "B", 18, march.Add(72*time.Hour)),
	}

	scores, _ := MonthlyPoints(activities)
	require.Len(t, scores, 2)
	require.Equal(t, int64(2), scores[0].AthleteID)
	require.Equal(t, 30.0, scores[0].Kilometers)
	require.Equal(t, 2, scores[0].Points)
}

func TestMonthlyPointsConservation(t *testing.T) {
	// In any month with N active athletes the distributed points must sum
	// to N*(N+1)/2.
	base := time.Date(2026, time.June, 5, 7, 0, 0, 0, time.UTC)
	var activities []domain.GroupActivity
	for i := int64(1); i <= 7; i++ {
		activities = append(activities, groupRide(i, "rider", float64(i*13%50+1), base.Add(time.Duration(i)*time.Hour)))
	}

	scores, _ := MonthlyPoints(activities)

	sum := 0
	for _, score := range scores {
		sum += score.Points
	}
	require.Equal(t, 7*8/2, sum)
}

func TestMonthlyPointsTieBreaksOnLowerAthleteID(t *testing.T) {
	may := time.Date(2026, time.May, 3, 8, 0, 0, 0, time.UTC)

	activities := []domain.GroupActivity{
		groupRide(9, "late", 50, may),
		groupRide(4, "early", 50, may.Add(time.Hour)),
	}

	scores, _ := MonthlyPoints(activities)
	require.Equal(t, int64(4), scores[0].AthleteID)
	require.Equal(t, 2, scores[0].Points)
	require.Equal(t, int64(9), scores[1].AthleteID)
	require.Equal(t, 1, scores[1].Points)
}

func TestMonthlyPointsAccumulatesAcrossMonths(t *testing.T) {
	jan := time.Date(2026, time.January, 10, 8, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 10, 8, 0, 0, 0, time.UTC)

	activities := []domain.GroupActivity{
		groupRide(1, "A", 100, jan),
		groupRide(2, "B", 50, jan),
		groupRide(1, "A", 10, feb),
		groupRide(2, "B", 60, feb),
	}

	_, standings := MonthlyPoints(activities)

	// A: 2 (Jan) + 1 (Feb) = 3. B: 1 + 2 = 3. Tie resolved by athlete ID.
	require.Len(t, standings, 2)
	require.Equal(t, 3, standings[0].TotalPoints)
	require.Equal(t, 3, standings[1].TotalPoints)
	require.Equal(t, int64(1), standings[0].AthleteID)
}

func TestMonthlyPointsEmptyInput(t *testing.T) {
	scores, standings := MonthlyPoints(nil)
	require.Nil(t, scores)
	require.Nil(t, standings)
}
