package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/digitalbackpack/subtrack/internal/errors"
	"github.com/digitalbackpack/subtrack/internal/logging"
	"github.com/digitalbackpack/subtrack/internal/models"
)

// SubscriptionSource provides the current full record set. Satisfied by the
// repository.
type SubscriptionSource interface {
	GetAll() ([]*models.Subscription, error)
}

// Reconciler re-derives the complete reminder set from source-of-truth data
// and re-asserts it through the scheduler, healing drift from reboots, task
// eviction, or missed updates.
type Reconciler struct {
	source    SubscriptionSource
	scheduler *Scheduler
}

// NewReconciler creates a Reconciler.
func NewReconciler(source SubscriptionSource, scheduler *Scheduler) *Reconciler {
	return &Reconciler{source: source, scheduler: scheduler}
}

// RunOnce performs one reconciliation pass: read every record, enabled or
// not, and push the full set through RescheduleAll, which applies the
// enablement and expiry checks itself. Errors are retryable: the caller's
// runner tries again on its next cadence. Rerunning with unchanged data
// produces the identical registration set.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runID := uuid.New().String()
	logging.Info("reconciliation started", map[string]interface{}{"run_id": runID})

	subs, err := r.source.GetAll()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrReconciliation, "read subscriptions", err)
	}

	if err := r.scheduler.RescheduleAll(subs); err != nil {
		return apperrors.Wrap(apperrors.ErrReconciliation, "re-assert reminders", err)
	}

	logging.Info("reconciliation completed", map[string]interface{}{
		"run_id":        runID,
		"subscriptions": len(subs),
	})
	return nil
}

// Job is a unit of recurring work driven by a Runner or any external
// cron/timer. Implementations must tolerate being re-run after a failure or
// a mid-run termination.
type Job interface {
	RunOnce(ctx context.Context) error
}

// RunnerConfig holds the recurring cadence for a Runner.
type RunnerConfig struct {
	Interval     time.Duration // how often the job runs (default: daily)
	InitialDelay time.Duration // startup grace delay before the first run
}

// DefaultRunnerConfig returns the default recurring cadence.
func DefaultRunnerConfig() *RunnerConfig {
	return &RunnerConfig{
		Interval:     24 * time.Hour,
		InitialDelay: 1 * time.Hour,
	}
}

// Runner drives a Job on a recurring cadence in its own goroutine. A failed
// run is logged and retried at the next tick; the runner itself never stops
// on job errors. Timing is best-effort: the contract is "heal eventually",
// not "heal precisely on time".
type Runner struct {
	job          Job
	interval     time.Duration
	initialDelay time.Duration

	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRunner creates a Runner for the given job.
func NewRunner(job Job, config *RunnerConfig) *Runner {
	if config == nil {
		config = DefaultRunnerConfig()
	}
	return &Runner{
		job:          job,
		interval:     config.Interval,
		initialDelay: config.InitialDelay,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the recurring loop. Calling Start on a running Runner is a
// no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop(ctx)

	logging.Info("reconciliation runner started", map[string]interface{}{
		"interval":      r.interval.String(),
		"initial_delay": r.initialDelay.String(),
	})
}

// Stop shuts the loop down and waits for it to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	r.mu.Unlock()

	close(r.stopCh)
	r.wg.Wait()

	logging.Info("reconciliation runner stopped", nil)
}

// IsRunning reports whether the loop is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRunning
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	// Startup grace delay before the first run
	delay := time.NewTimer(r.initialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return
	case <-r.stopCh:
		return
	case <-delay.C:
	}

	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if err := r.job.RunOnce(ctx); err != nil {
		logging.Error("reconciliation run failed, will retry at next tick", err, nil)
	}
}
