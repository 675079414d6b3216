package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/clubsync/internal/domain"
)

type activityKey struct {
	athleteID  int64
	activityID int64
}

// Store keeps profiles, activities and group memberships in memory. It mirrors
// the semantics of the Postgres repository and backs local development and the
// sync driver's tests.
type Store struct {
	mu         sync.RWMutex
	profiles   map[int64]domain.Profile
	activities map[activityKey]domain.Activity
	members    map[string]map[int64]string

	now func() time.Time
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		profiles:   make(map[int64]domain.Profile),
		activities: make(map[activityKey]domain.Activity),
		members:    make(map[string]map[int64]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AddGroupMember registers an athlete in a group. Only "approved" members show
// up in group queries.
func (s *Store) AddGroupMember(groupID string, athleteID int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[groupID] == nil {
		s.members[groupID] = make(map[int64]string)
	}
	s.members[groupID][athleteID] = status
}

// UpsertProfile implements domain.ProfileStore.
func (s *Store) UpsertProfile(ctx context.Context, profile domain.Profile, opts domain.UpsertProfileOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.profiles[profile.AthleteID]
	if ok {
		profile.ConnectionCount = existing.ConnectionCount
		profile.LastLoginAt = existing.LastLoginAt
		profile.LastFullSyncAt = existing.LastFullSyncAt
	}
	if opts.Interactive {
		profile.ConnectionCount++
		profile.LastLoginAt = &now
	}
	if opts.FullSync {
		profile.LastFullSyncAt = &now
	}

	s.profiles[profile.AthleteID] = profile
	return nil
}

// UpdateRefreshToken implements domain.ProfileStore.
func (s *Store) UpdateRefreshToken(ctx context.Context, athleteID int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[athleteID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	profile.RefreshToken = token
	s.profiles[athleteID] = profile
	return nil
}

// GetProfile implements domain.ProfileStore.
func (s *Store) GetProfile(ctx context.Context, athleteID int64) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[athleteID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &profile, nil
}

// ListProfiles implements domain.ProfileStore, ordered by athlete ID.
func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AthleteID < out[j].AthleteID })
	return out, nil
}

// UpsertActivities implements domain.ActivityStore.
func (s *Store) UpsertActivities(ctx context.Context, activities []domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range activities {
		s.activities[activityKey{athleteID: a.AthleteID, activityID: a.ID}] = a
	}
	return nil
}

// CountByAthlete implements domain.ActivityStore.
func (s *Store) CountByAthlete(ctx context.Context, athleteID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.activities {
		if key.athleteID == athleteID {
			count++
		}
	}
	return count, nil
}

// RecentByAthlete implements domain.ActivityStore, most recent first.
func (s *Store) RecentByAthlete(ctx context.Context, athleteID int64, limit int) ([]domain.Activity, error) {
	all, err := s.ListByAthlete(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListByAthlete implements domain.ActivityStore, most recent first.
func (s *Store) ListByAthlete(ctx context.Context, athleteID int64) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Activity
	for key, a := range s.activities {
		if key.athleteID == athleteID {
			out = append(out, a)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByGroupYear implements domain.ActivityStore.
func (s *Store) ListByGroupYear(ctx context.Context, groupID string, year int) ([]domain.GroupActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.GroupActivity
	for _, a := range s.activities {
		if s.members[groupID][a.AthleteID] != "approved" || a.StartDate.Year() != year {
			continue
		}
		profile := s.profiles[a.AthleteID]
		out = append(out, domain.GroupActivity{
			Activity:  a,
			FirstName: profile.FirstName,
			AvatarURL: profile.AvatarURL,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ListYearsForGroup implements domain.ActivityStore, newest year first.
func (s *Store) ListYearsForGroup(ctx context.Context, groupID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int]bool)
	for _, a := range s.activities {
		if s.members[groupID][a.AthleteID] == "approved" {
			seen[a.StartDate.Year()] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func sortNewestFirst(activities []domain.Activity) {
	sort.Slice(activities, func(i, j int) bool {
		if !activities[i].StartDate.Equal(activities[j].StartDate) {
			return activities[i].StartDate.After(activities[j].StartDate)
		}
		return activities[i].ID > activities[j].ID
	})
}
