package scoring

import (
	"sort"

	"example.com/clubsync/internal/domain"
)

// Metric selects the value athletes are ranked by in the plain leaderboard.
type Metric string

const (
	MetricKilometers Metric = "km"
	MetricElevation  Metric = "elevation"
	MetricTime       Metric = "time"
)

// AthleteTotals aggregates one athlete's rides over the requested period.
type AthleteTotals struct {
	AthleteID     int64
	FirstName     string
	AvatarURL     string
	Rides         int
	Kilometers    float64
	ElevationGain float64
	MovingTimeSec int
	AvgKmPerRide  float64
	AvgSpeedKmh   float64
}

func (t AthleteTotals) metricValue(metric Metric) float64 {
	switch metric {
	case MetricElevation:
		return t.ElevationGain
	case MetricTime:
		return float64(t.MovingTimeSec)
	default:
		return t.Kilometers
	}
}

// Totals aggregates activities per athlete and ranks by the chosen metric
// descending, ties broken by athlete ID.
func Totals(activities []domain.GroupActivity, metric Metric) []AthleteTotals {
	byAthlete := make(map[int64]*AthleteTotals)
	for _, act := range activities {
		agg, ok := byAthlete[act.AthleteID]
		if !ok {
			agg = &AthleteTotals{AthleteID: act.AthleteID, FirstName: act.FirstName, AvatarURL: act.AvatarURL}
			byAthlete[act.AthleteID] = agg
		}
		agg.Rides++
		agg.Kilometers += act.DistanceKm
		agg.ElevationGain += act.ElevationGain
		agg.MovingTimeSec += act.MovingTimeSec
	}

	totals := make([]AthleteTotals, 0, len(byAthlete))
	for _, agg := range byAthlete {
		if agg.Rides > 0 {
			agg.AvgKmPerRide = agg.Kilometers / float64(agg.Rides)
		}
		if agg.MovingTimeSec > 0 {
			agg.AvgSpeedKmh = agg.Kilometers / (float64(agg.MovingTimeSec) / 3600)
		}
		totals = append(totals, *agg)
	}

	sort.Slice(totals, func(i, j int) bool {
		vi, vj := totals[i].metricValue(metric), totals[j].metricValue(metric)
		if vi != vj {
			return vi > vj
		}
		return totals[i].AthleteID < totals[j].AthleteID
	})
	return totals
}

// YearSummary is one year's aggregate for a single athlete.
type YearSummary struct {
	Year          int
	Rides         int
	Kilometers    float64
	ElevationGain float64
}

// YearlySummary groups one athlete's activities by calendar year, newest
// first.
func YearlySummary(activities []domain.Activity) []YearSummary {
	byYear := make(map[int]*YearSummary)
	for _, act := range activities {
		year := act.StartDate.Year()
		summary, ok := byYear[year]
		if !ok {
			summary = &YearSummary{Year: year}
			byYear[year] = summary
		}
		summary.Rides++
		summary.Kilometers += act.DistanceKm
		summary.ElevationGain += act.ElevationGain
	}

	summaries := make([]YearSummary, 0, len(byYear))
	for _, summary := range byYear {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Year > summaries[j].Year
	})
	return summaries
}

// TopByDistance returns the n longest activities, longest first.
func TopByDistance(activities []domain.Activity, n int) []domain.Activity {
	return topBy(activities, n, func(a domain.Activity) float64 { return a.DistanceKm })
}

// TopByElevation returns the n biggest climbs, biggest first.
func TopByElevation(activities []domain.Activity, n int) []domain.Activity {
	return topBy(activities, n, func(a domain.Activity) float64 { return a.ElevationGain })
}

func topBy(activities []domain.Activity, n int, value func(domain.Activity) float64) []domain.Activity {
	sorted := make([]domain.Activity, len(activities))
	copy(sorted, activities)
	sort.Slice(sorted, func(i, j int) bool {
		vi, vj := value(sorted[i]), value(sorted[j])
		if vi != vj {
			return vi > vj
		}
		return sorted[i].ID < sorted[j].ID
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
