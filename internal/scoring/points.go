// Package scoring converts synchronized activity rows into competitive
// rankings. Every function is pure and stateless over its input slice; the
// read API recomputes on each request from the rows the store returns.
package scoring

import (
	"sort"
	"time"

	"example.com/clubsync/internal/domain"
)

// MonthlyScore is one athlete's result for one calendar month.
type MonthlyScore struct {
	AthleteID  int64
	FirstName  string
	AvatarURL  string
	Year       int
	Month      time.Month
	Kilometers float64
	Points     int
}

// AnnualStanding is an athlete's point total across every month they were
// active.
type AnnualStanding struct {
	AthleteID   int64
	FirstName   string
	AvatarURL   string
	TotalPoints int
}

// MonthlyPoints implements the regularity challenge. For each month with
// activity, athletes are ranked by kilometers; with N active athletes the
// leader earns N points and the last earns 1, so the same distance is worth
// more in a crowded month. Equal distances rank the lower athlete ID first,
// which keeps results deterministic across runs. The returned monthly rows
// are ordered chronologically, then by points descending; standings are
// ordered by total points descending.
func MonthlyPoints(activities []domain.GroupActivity) ([]MonthlyScore, []AnnualStanding) {
	if len(activities) == 0 {
		return nil, nil
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	type athleteAgg struct {
		athleteID  int64
		firstName  string
		avatarURL  string
		kilometers float64
	}

	byMonth := make(map[monthKey]map[int64]*athleteAgg)
	for _, act := range activities {
		key := monthKey{act.StartDate.Year(), act.StartDate.Month()}
		if byMonth[key] == nil {
			byMonth[key] = make(map[int64]*athleteAgg)
		}
		agg, ok := byMonth[key][act.AthleteID]
		if !ok {
			agg = &athleteAgg{athleteID: act.AthleteID, firstName: act.FirstName, avatarURL: act.AvatarURL}
			byMonth[key][act.AthleteID] = agg
		}
		agg.kilometers += act.DistanceKm
	}

	months := make([]monthKey, 0, len(byMonth))
	for key := range byMonth {
		months = append(months, key)
	}
	sort.Slice(months, func(i, j int) bool {
		if months[i].year != months[j].year {
			return months[i].year < months[j].year
		}
		return months[i].month < months[j].month
	})

	var scores []MonthlyScore
	totals := make(map[int64]*AnnualStanding)

	for _, key := range months {
		ranked := make([]*athleteAgg, 0, len(byMonth[key]))
		for _, agg := range byMonth[key] {
			ranked = append(ranked, agg)
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].kilometers != ranked[j].kilometers {
				return ranked[i].kilometers > ranked[j].kilometers
			}
			return ranked[i].athleteID < ranked[j].athleteID
		})

		n := len(ranked)
		for idx, agg := range ranked {
			score := MonthlyScore{
				AthleteID:  agg.athleteID,
				FirstName:  agg.firstName,
				AvatarURL:  agg.avatarURL,
				Year:       key.year,
				Month:      key.month,
				Kilometers: agg.kilometers,
				Points:     n - idx,
			}
			scores = append(scores, score)

			standing, ok := totals[agg.athleteID]
			if !ok {
				standing = &AnnualStanding{AthleteID: agg.athleteID, FirstName: agg.firstName, AvatarURL: agg.avatarURL}
				totals[agg.athleteID] = standing
			}
			standing.TotalPoints += score.Points
		}
	}

	standings := make([]AnnualStanding, 0, len(totals))
	for _, standing := range totals {
		standings = append(standings, *standing)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].TotalPoints != standings[j].TotalPoints {
			return standings[i].TotalPoints > standings[j].TotalPoints
		}
		return standings[i].AthleteID < standings[j].AthleteID
	})

	return scores, standings
}
