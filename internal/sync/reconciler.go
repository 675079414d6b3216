// Package sync drives batch synchronization of connected athlete accounts:
// token refresh, activity fetch, and idempotent reconciliation into storage.
package sync

import (
	"context"
	"fmt"

	"example.com/clubsync/internal/domain"
	"example.com/clubsync/internal/observability"
	"example.com/clubsync/internal/strava"
)

// Reconciler lands fetched provider records in storage. The profile row is
// written before any activity so the activity foreign key always resolves,
// and distances are normalized from meters to kilometers exactly here, never
// again downstream.
type Reconciler struct {
	store domain.Store
}

// NewReconciler constructs a Reconciler.
func NewReconciler(store domain.Store) *Reconciler {
	return &Reconciler{store: store}
}

// ReconcileAccount upserts the profile and then the batch of fetched records.
// Applying the same batch twice leaves storage unchanged. It returns the
// number of activities written.
func (r *Reconciler) ReconcileAccount(ctx context.Context, profile domain.Profile, records []strava.ActivityRecord, opts domain.UpsertProfileOptions) (int, error) {
	if err := r.store.UpsertProfile(ctx, profile, opts); err != nil {
		return 0, fmt.Errorf("upsert profile %d: %w", profile.AthleteID, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	activities := make([]domain.Activity, 0, len(records))
	for _, rec := range records {
		activities = append(activities, toActivity(profile.AthleteID, rec))
	}
	if err := r.store.UpsertActivities(ctx, activities); err != nil {
		return 0, fmt.Errorf("upsert activities for %d: %w", profile.AthleteID, err)
	}

	observability.RecordActivitiesUpserted(len(activities))
	return len(activities), nil
}

func toActivity(athleteID int64, rec strava.ActivityRecord) domain.Activity {
	return domain.Activity{
		ID:            rec.ID,
		AthleteID:     athleteID,
		Name:          rec.Name,
		DistanceKm:    rec.Distance / 1000.0,
		ElevationGain: rec.TotalElevationGain,
		MovingTimeSec: rec.MovingTime,
		Type:          rec.Type,
		StartDate:     rec.StartDate,
		UTCOffsetSec:  int(rec.UTCOffset),
	}
}
