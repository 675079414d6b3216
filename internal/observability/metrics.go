// Package observability exposes Prometheus metrics for the sync pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncRunsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubsync",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Batch sync runs by outcome.",
	}, []string{"outcome"})
	accountsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubsync",
		Subsystem: "sync",
		Name:      "accounts_total",
		Help:      "Per-account sync attempts by outcome.",
	}, []string{"outcome"})
	tokensRotatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clubsync",
		Subsystem: "sync",
		Name:      "tokens_rotated_total",
		Help:      "Refresh tokens persisted after provider rotation.",
	})
	pagesFetchedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clubsync",
		Subsystem: "strava",
		Name:      "pages_fetched_total",
		Help:      "Activity pages fetched from the provider.",
	})
	activitiesUpsertedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clubsync",
		Subsystem: "sync",
		Name:      "activities_upserted_total",
		Help:      "Activities written through the reconciler.",
	})
	lastRunGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clubsync",
		Subsystem: "sync",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed sync run.",
	})
	runDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clubsync",
		Subsystem: "sync",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of batch sync runs.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(
		syncRunsCounter,
		accountsCounter,
		tokensRotatedCounter,
		pagesFetchedCounter,
		activitiesUpsertedCounter,
		lastRunGauge,
		runDurationHistogram,
	)
}

// RecordRun records a completed batch run and its watermark.
func RecordRun(outcome string, finished time.Time, duration time.Duration) {
	syncRunsCounter.WithLabelValues(outcome).Inc()
	runDurationHistogram.Observe(duration.Seconds())
	if !finished.IsZero() {
		lastRunGauge.Set(float64(finished.Unix()))
	}
}

// RecordAccount records one per-account sync attempt.
func RecordAccount(outcome string) {
	accountsCounter.WithLabelValues(outcome).Inc()
}

// RecordTokenRotated counts a persisted refresh-token rotation.
func RecordTokenRotated() {
	tokensRotatedCounter.Inc()
}

// RecordPageFetched counts a provider page fetch.
func RecordPageFetched() {
	pagesFetchedCounter.Inc()
}

// RecordActivitiesUpserted counts reconciled activities.
func RecordActivitiesUpserted(n int) {
	if n > 0 {
		activitiesUpsertedCounter.Add(float64(n))
	}
}
