package sync

import (
	"context"
	"log"
	"strconv"
	"time"

	"example.com/clubsync/internal/cache"
	"example.com/clubsync/internal/domain"
	"example.com/clubsync/internal/events"
	"example.com/clubsync/internal/observability"
	"example.com/clubsync/internal/strava"
)

const (
	// fullSyncThreshold is the stored-activity count at or below which an
	// account is considered not yet bootstrapped and gets a full fetch.
	fullSyncThreshold = 100
	// maxFullPages bounds a full fetch. At 200 records per page this covers
	// 20k activities, far beyond any club member's history.
	maxFullPages = 100
)

// TokenRefresher exchanges a stored refresh token for fresh credentials.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (strava.Tokens, error)
}

// Fetcher retrieves activity records from the provider.
type Fetcher interface {
	FetchAll(ctx context.Context, accessToken string, maxPages int) []strava.ActivityRecord
	FetchRecent(ctx context.Context, accessToken string) ([]strava.ActivityRecord, error)
}

// RunOptions select the strategy for one batch run.
type RunOptions struct {
	// RecentOnly skips the bootstrap full fetch even for new accounts.
	RecentOnly bool
	// Interactive marks the run as user-initiated, so profile upserts count
	// a login. Scheduled and admin runs leave it false.
	Interactive bool
}

// AccountResult records the outcome of one account within a run.
type AccountResult struct {
	AthleteID  int64
	Activities int
	FullSync   bool
	Err        error
}

// Report summarizes one batch run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Accounts   []AccountResult
}

// Succeeded counts accounts that synced without error.
func (r Report) Succeeded() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts accounts whose sync errored.
func (r Report) Failed() int {
	return len(r.Accounts) - r.Succeeded()
}

// Driver iterates every connected profile and syncs each one in isolation: a
// failing account is recorded and skipped, never aborting the rest of the run.
type Driver struct {
	store       domain.Store
	tokens      TokenRefresher
	fetcher     Fetcher
	reconciler  *Reconciler
	publisher   events.Publisher
	invalidator cache.Invalidator

	recentOnly     bool
	accountTimeout time.Duration
	logger         *log.Logger
	now            func() time.Time
}

// DriverOption configures optional driver behaviour.
type DriverOption func(*Driver)

// WithRecentOnly restricts runs to the recent page, skipping the bootstrap
// full fetch. Scheduled runs use this; admin-triggered runs usually do not.
func WithRecentOnly(recentOnly bool) DriverOption {
	return func(d *Driver) { d.recentOnly = recentOnly }
}

// WithAccountTimeout bounds the time spent on a single account.
func WithAccountTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) { d.accountTimeout = timeout }
}

// WithPublisher sets the event publisher for sync lifecycle events.
func WithPublisher(p events.Publisher) DriverOption {
	return func(d *Driver) { d.publisher = p }
}

// WithInvalidator sets the leaderboard cache invalidator.
func WithInvalidator(inv cache.Invalidator) DriverOption {
	return func(d *Driver) { d.invalidator = inv }
}

// WithDriverLogger sets a custom logger.
func WithDriverLogger(l *log.Logger) DriverOption {
	return func(d *Driver) { d.logger = l }
}

// NewDriver constructs a Driver.
func NewDriver(store domain.Store, tokens TokenRefresher, fetcher Fetcher, opts ...DriverOption) *Driver {
	d := &Driver{
		store:       store,
		tokens:      tokens,
		fetcher:     fetcher,
		reconciler:  NewReconciler(store),
		publisher:   events.NoopPublisher{},
		invalidator: cache.NoopInvalidator{},
		logger:      log.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DefaultOptions returns the options scheduled runs use.
func (d *Driver) DefaultOptions() RunOptions {
	return RunOptions{RecentOnly: d.recentOnly}
}

// Run syncs every connected profile once and returns the per-account report.
// Only listing the profiles can fail the run as a whole; everything after is
// isolated per account. Cancelling the context stops between accounts.
func (d *Driver) Run(ctx context.Context, runID string, opts RunOptions) (Report, error) {
	report := Report{RunID: runID, StartedAt: d.now()}

	profiles, err := d.store.ListProfiles(ctx)
	if err != nil {
		return report, err
	}

	for _, profile := range profiles {
		if err := ctx.Err(); err != nil {
			break
		}

		result := AccountResult{AthleteID: profile.AthleteID}
		result.Activities, result.FullSync, result.Err = d.syncAccount(ctx, profile, opts)
		report.Accounts = append(report.Accounts, result)

		if result.Err != nil {
			observability.RecordAccount("error")
			d.logger.Printf("account %d failed: %v", profile.AthleteID, result.Err)
			continue
		}
		observability.RecordAccount("ok")

		if err := d.publisher.Publish(ctx, events.TypeAccountSynced, strconv.FormatInt(profile.AthleteID, 10), events.AccountSynced{
			RunID:      runID,
			AthleteID:  profile.AthleteID,
			Activities: result.Activities,
			FullSync:   result.FullSync,
			OccurredAt: d.now(),
		}); err != nil {
			d.logger.Printf("publish account event for %d: %v", profile.AthleteID, err)
		}
	}

	report.FinishedAt = d.now()
	d.finishRun(ctx, report)
	return report, nil
}

func (d *Driver) finishRun(ctx context.Context, report Report) {
	outcome := "ok"
	if report.Failed() > 0 {
		outcome = "partial"
	}
	observability.RecordRun(outcome, report.FinishedAt, report.FinishedAt.Sub(report.StartedAt))

	if report.Succeeded() > 0 {
		if err := d.invalidator.InvalidateAll(ctx); err != nil {
			d.logger.Printf("cache invalidation: %v", err)
		}
	}

	if err := d.publisher.Publish(ctx, events.TypeSyncCompleted, report.RunID, events.SyncCompleted{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Accounts:   len(report.Accounts),
		Succeeded:  report.Succeeded(),
		Failed:     report.Failed(),
	}); err != nil {
		d.logger.Printf("publish run event: %v", err)
	}
}

// syncAccount refreshes credentials, persists any rotated token before doing
// anything slow, then fetches and reconciles according to the account's
// bootstrap state.
func (d *Driver) syncAccount(ctx context.Context, profile domain.Profile, opts RunOptions) (int, bool, error) {
	if d.accountTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.accountTimeout)
		defer cancel()
	}

	tokens, err := d.tokens.Refresh(ctx, profile.RefreshToken)
	if err != nil {
		return 0, false, err
	}
	if tokens.Refresh != "" && tokens.Refresh != profile.RefreshToken {
		if err := d.store.UpdateRefreshToken(ctx, profile.AthleteID, tokens.Refresh); err != nil {
			return 0, false, err
		}
		profile.RefreshToken = tokens.Refresh
		observability.RecordTokenRotated()
	}

	records, err := d.fetcher.FetchRecent(ctx, tokens.Access)
	if err != nil {
		return 0, false, err
	}
	written, err := d.reconciler.ReconcileAccount(ctx, profile, records, domain.UpsertProfileOptions{Interactive: opts.Interactive})
	if err != nil {
		return 0, false, err
	}

	if opts.RecentOnly {
		return written, false, nil
	}

	count, err := d.store.CountByAthlete(ctx, profile.AthleteID)
	if err != nil {
		return written, false, err
	}
	if count > fullSyncThreshold {
		return written, false, nil
	}

	all := d.fetcher.FetchAll(ctx, tokens.Access, maxFullPages)
	fullWritten, err := d.reconciler.ReconcileAccount(ctx, profile, all, domain.UpsertProfileOptions{FullSync: true})
	if err != nil {
		return written, true, err
	}
	return written + fullWritten, true, nil
}
