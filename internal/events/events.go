// Package events publishes and consumes sync lifecycle messages over Kafka.
package events

import "time"

// Event type values carried in the event_type message header.
const (
	TypeSyncCompleted = "sync.completed"
	TypeAccountSynced = "sync.account_synced"
)

// SyncCompleted is emitted once per batch run after every account was attempted.
type SyncCompleted struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Accounts   int       `json:"accounts"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
}

// AccountSynced is emitted after one athlete's activities were reconciled.
type AccountSynced struct {
	RunID      string    `json:"run_id"`
	AthleteID  int64     `json:"athlete_id"`
	Activities int       `json:"activities"`
	FullSync   bool      `json:"full_sync"`
	OccurredAt time.Time `json:"occurred_at"`
}
