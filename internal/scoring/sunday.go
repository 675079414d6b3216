package scoring

import (
	"sort"
	"time"

	"example.com/clubsync/internal/domain"
)

// SundayOptions control the Sunday-morning ride filter. The window runs in
// the activity's recorded local time; the end bound is exclusive.
type SundayOptions struct {
	WindowStartMinute int     // minutes since midnight, default 300 (05:00)
	WindowEndMinute   int     // minutes since midnight, default 600 (10:00)
	MinDistanceKm     float64 // 0 disables the floor; the strict club variant uses 50
	PointsPool        int     // per-Sunday pool for the points variant, default 30
}

func (o SundayOptions) withDefaults() SundayOptions {
	if o.WindowStartMinute == 0 && o.WindowEndMinute == 0 {
		o.WindowStartMinute = 5 * 60
		o.WindowEndMinute = 10 * 60
	}
	if o.PointsPool == 0 {
		o.PointsPool = 30
	}
	return o
}

func (o SundayOptions) qualifies(act domain.GroupActivity) bool {
	local := act.LocalStart()
	if local.Weekday() != time.Sunday {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	if minute < o.WindowStartMinute || minute >= o.WindowEndMinute {
		return false
	}
	return act.DistanceKm >= o.MinDistanceKm
}

// SundayStanding is one athlete's Sunday-morning tally.
type SundayStanding struct {
	AthleteID  int64
	FirstName  string
	AvatarURL  string
	Rides      int
	Kilometers float64
}

// SundayMorningLeaderboard counts qualifying Sunday-morning rides per
// athlete, ordered by ride count descending, then kilometers descending,
// then athlete ID.
func SundayMorningLeaderboard(activities []domain.GroupActivity, opts SundayOptions) []SundayStanding {
	opts = opts.withDefaults()

	byAthlete := make(map[int64]*SundayStanding)
	for _, act := range activities {
		if !opts.qualifies(act) {
			continue
		}
		standing, ok := byAthlete[act.AthleteID]
		if !ok {
			standing = &SundayStanding{AthleteID: act.AthleteID, FirstName: act.FirstName, AvatarURL: act.AvatarURL}
			byAthlete[act.AthleteID] = standing
		}
		standing.Rides++
		standing.Kilometers += act.DistanceKm
	}

	standings := make([]SundayStanding, 0, len(byAthlete))
	for _, standing := range byAthlete {
		standings = append(standings, *standing)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Rides != standings[j].Rides {
			return standings[i].Rides > standings[j].Rides
		}
		if standings[i].Kilometers != standings[j].Kilometers {
			return standings[i].Kilometers > standings[j].Kilometers
		}
		return standings[i].AthleteID < standings[j].AthleteID
	})
	return standings
}

// SundayPointsStanding is an athlete's share of the per-Sunday point pools.
type SundayPointsStanding struct {
	AthleteID int64
	FirstName string
	AvatarURL string
	Sundays   int
	Points    float64
}

// SundayPointsPool splits a fixed pool evenly among each Sunday's
// participants and sums the shares per athlete over the period. Riding
// twice on the same Sunday counts once.
func SundayPointsPool(activities []domain.GroupActivity, opts SundayOptions) []SundayPointsStanding {
	opts = opts.withDefaults()

	type sundayKey struct {
		year  int
		month time.Month
		day   int
	}

	participants := make(map[sundayKey]map[int64]domain.GroupActivity)
	for _, act := range activities {
		if !opts.qualifies(act) {
			continue
		}
		local := act.LocalStart()
		key := sundayKey{local.Year(), local.Month(), local.Day()}
		if participants[key] == nil {
			participants[key] = make(map[int64]domain.GroupActivity)
		}
		participants[key][act.AthleteID] = act
	}

	totals := make(map[int64]*SundayPointsStanding)
	for _, riders := range participants {
		share := float64(opts.PointsPool) / float64(len(riders))
		for athleteID, act := range riders {
			standing, ok := totals[athleteID]
			if !ok {
				standing = &SundayPointsStanding{AthleteID: athleteID, FirstName: act.FirstName, AvatarURL: act.AvatarURL}
				totals[athleteID] = standing
			}
			standing.Sundays++
			standing.Points += share
		}
	}

	standings := make([]SundayPointsStanding, 0, len(totals))
	for _, standing := range totals {
		standings = append(standings, *standing)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return standings[i].AthleteID < standings[j].AthleteID
	})
	return standings
}
