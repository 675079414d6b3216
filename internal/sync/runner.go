package sync

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned when a trigger arrives while a run is active.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// ErrRunNotFound is returned when looking up an unknown run ID.
var ErrRunNotFound = errors.New("sync run not found")

// Run is the handle for one in-flight or finished batch run.
type Run struct {
	ID        string
	StartedAt time.Time
	Options   RunOptions

	done   chan struct{}
	report Report
	err    error
}

// Done is closed when the run finishes.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Finished reports whether the run has completed.
func (r *Run) Finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Result returns the report once the run has finished. Callers must check
// Finished first; before completion it returns a zero report.
func (r *Run) Result() (Report, error) {
	if !r.Finished() {
		return Report{}, nil
	}
	return r.report, r.err
}

// Runner serializes batch runs: at most one is active at a time, whether it
// came from the scheduler or an admin trigger. Finished runs stay queryable
// by ID for status endpoints.
type Runner struct {
	driver *Driver
	logger *log.Logger

	mu      sync.Mutex
	current *Run
	runs    map[string]*Run
}

// RunnerOption configures runner behaviour.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a custom logger.
func WithRunnerLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner constructs a Runner.
func NewRunner(driver *Driver, opts ...RunnerOption) *Runner {
	r := &Runner{
		driver: driver,
		logger: log.Default(),
		runs:   make(map[string]*Run),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trigger starts a run in the background and returns its handle immediately.
// The run executes under ctx, so callers must pass a process-lifecycle
// context rather than a per-request one; cancelling it stops the run between
// accounts.
func (r *Runner) Trigger(ctx context.Context, opts RunOptions) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && !r.current.Finished() {
		return nil, ErrRunInProgress
	}

	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: r.driver.now(),
		Options:   opts,
		done:      make(chan struct{}),
	}
	r.current = run
	r.runs[run.ID] = run

	go r.execute(ctx, run)
	return run, nil
}

func (r *Runner) execute(ctx context.Context, run *Run) {
	defer close(run.done)

	report, err := r.driver.Run(ctx, run.ID, run.Options)
	run.report = report
	run.err = err
	if err != nil {
		r.logger.Printf("run %s failed: %v", run.ID, err)
		return
	}
	r.logger.Printf("run %s finished: %d accounts, %d failed", run.ID, len(report.Accounts), report.Failed())
}

// DefaultOptions reports the options a scheduled run would use, so callers
// can fall back to them when a trigger request leaves the strategy unset.
func (r *Runner) DefaultOptions() RunOptions {
	return r.driver.DefaultOptions()
}

// Get returns the handle for a known run ID.
func (r *Runner) Get(id string) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

/// Start launches the scheduling loop: one immediate run, then one per
// interval. It should be called in a goroutine and returns when ctx is
// cancelled. A tick that lands while a run is active is skipped.
func (r *Runner) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Trigger(ctx, r.driver.DefaultOptions()); err != nil && !errors.Is(err, ErrRunInProgress) {
			r.logger.Printf("trigger: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
