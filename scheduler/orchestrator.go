package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pacerhq/pacer/errors"
)

// Config tunes one orchestrator instance. Zero values fall back to the
// defaults from DefaultConfig.
type Config struct {
	BatchLimit    int           // Due schedules per family per pass
	Workers       int           // Concurrent executions within a family
	JobTimeout    time.Duration // Bound on a single executor invocation
	RatePerSecond float64       // Executor dispatch rate limit, 0 = unlimited
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		BatchLimit: DefaultFetchLimit,
		Workers:    4,
		JobTimeout: 5 * time.Minute,
	}
}

// Executors bundles the three external execution engines
type Executors struct {
	Workflow WorkflowExecutor
	Notebook NotebookExecutor
	Sync     SyncExecutor
}

// EventBroadcaster pushes live execution events to connected observers.
// Declared here rather than in the transport package so the orchestrator
// never depends on the thing that implements it. Implementations must be
// safe for concurrent use; workers broadcast in parallel.
type EventBroadcaster interface {
	BroadcastJobStarted(family Family, scheduleID, name string)
	BroadcastJobCompleted(family Family, scheduleID, name string, durationMs int)
	BroadcastJobFailed(family Family, scheduleID, name, errMsg string, durationMs int)
	BroadcastPassCompleted(summary *PassSummary)
}

// Orchestrator drives a single polling pass: it asks each family store for
// its due schedules, claims and executes each one independently, records
// per-job outcomes, and persists the updated scheduling state.
//
// A pass may be invoked concurrently by overlapping triggers; the per-job
// claim guarantees each due schedule is executed by exactly one pass.
type Orchestrator struct {
	workflows *Store
	notebooks *Store
	syncs     *Store
	execs     Executors
	passes    *PassStore
	limiter   *rate.Limiter
	logger    *zap.SugaredLogger

	mu          sync.RWMutex
	cfg         Config
	broadcaster EventBroadcaster

	// now is injectable for tests
	now func() time.Time
}

// New creates an orchestrator over the three family stores
func New(db *sql.DB, execs Executors, cfg Config, logger *zap.SugaredLogger) *Orchestrator {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultConfig().BatchLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultConfig().JobTimeout
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	o := &Orchestrator{
		workflows: NewWorkflowStore(db),
		notebooks: NewNotebookStore(db),
		syncs:     NewSyncStore(db),
		execs:     execs,
		passes:    NewPassStore(db),
		limiter:   limiter,
		logger:    logger.Named("scheduler"),
		cfg:       cfg,
		now:       time.Now,
	}
	o.applyClaimLease(cfg.JobTimeout)
	return o
}

// applyClaimLease keeps the stores' stale-claim lease proportional to the
// job timeout: a row stuck in running for twice the timeout can only belong
// to a dead process and becomes claimable again.
func (o *Orchestrator) applyClaimLease(jobTimeout time.Duration) {
	lease := 2 * jobTimeout
	o.workflows.SetClaimLease(lease)
	o.notebooks.SetClaimLease(lease)
	o.syncs.SetClaimLease(lease)
}

// SetBroadcaster attaches a live event sink. Pass nil to detach.
func (o *Orchestrator) SetBroadcaster(b EventBroadcaster) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.broadcaster = b
}

func (o *Orchestrator) eventSink() EventBroadcaster {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.broadcaster
}

// StoreFor returns the store serving the given family, or nil
func (o *Orchestrator) StoreFor(family Family) *Store {
	switch family {
	case FamilyWorkflow:
		return o.workflows
	case FamilyNotebook:
		return o.notebooks
	case FamilyDataSync:
		return o.syncs
	}
	return nil
}

// Passes returns the pass history store
func (o *Orchestrator) Passes() *PassStore {
	return o.passes
}

// UpdateConfig applies new limits at runtime (config hot reload).
// Takes effect on the next pass.
func (o *Orchestrator) UpdateConfig(cfg Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cfg.BatchLimit > 0 {
		o.cfg.BatchLimit = cfg.BatchLimit
	}
	if cfg.Workers > 0 {
		o.cfg.Workers = cfg.Workers
	}
	if cfg.JobTimeout > 0 {
		o.cfg.JobTimeout = cfg.JobTimeout
		o.applyClaimLease(cfg.JobTimeout)
	}
	o.logger.Infow("Scheduler limits updated",
		"batch_limit", o.cfg.BatchLimit,
		"workers", o.cfg.Workers,
		"job_timeout", o.cfg.JobTimeout)
}

func (o *Orchestrator) config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

// RunPass polls all three families once and executes everything currently
// due. Job failures and whole-family failures are recorded in the summary
// and never abort the rest of the pass; the returned error is non-nil only
// when the pass could not run at all.
func (o *Orchestrator) RunPass(ctx context.Context) (*PassSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "pass aborted before start")
	}

	passID := uuid.NewString()
	startedAt := o.now()

	metrics := CollectSystemMetrics()
	o.logger.Infow("Pass started",
		"pass_id", passID,
		"memory_used_gb", metrics.MemoryUsedGB,
		"memory_percent", metrics.MemoryPercent)

	reports := []*familyReport{
		{family: FamilyWorkflow},
		{family: FamilyNotebook},
		{family: FamilyDataSync},
	}

	var g errgroup.Group
	g.Go(func() error {
		o.runFamily(ctx, reports[0], o.workflows, o.invokeWorkflow)
		return nil
	})
	g.Go(func() error {
		o.runFamily(ctx, reports[1], o.notebooks, o.invokeNotebook)
		return nil
	})
	g.Go(func() error {
		o.runFamily(ctx, reports[2], o.syncs, o.invokeSync)
		return nil
	})
	g.Wait()

	summary := summarize(passID, startedAt, o.now(), reports)

	// Isolated family failures are part of a normal summary, but when every
	// family failed wholesale and nothing was even attempted, the pass never
	// really ran: the persistence layer is unreachable.
	if len(summary.FamilyErrors) == len(reports) && summary.ExecutedCount == 0 && summary.SkippedCount == 0 {
		err := errors.New("pass could not run: no job family reachable")
		for family, msg := range summary.FamilyErrors {
			err = errors.WithDetail(err, fmt.Sprintf("%s: %s", family, msg))
		}
		o.logger.Errorw("Pass failed", "pass_id", passID, "error", err)
		return nil, err
	}

	if sink := o.eventSink(); sink != nil {
		sink.BroadcastPassCompleted(summary)
	}

	if err := o.passes.RecordPass(ctx, summary); err != nil {
		// History is an audit trail, not part of pass correctness
		o.logger.Warnw("Failed to record pass history", "pass_id", passID, "error", err)
	}

	o.logger.Infow("Pass completed",
		"pass_id", passID,
		"executed", summary.ExecutedCount,
		"failed", summary.FailedCount,
		"skipped", summary.SkippedCount,
		"duration", summary.CompletedAt.Sub(summary.StartedAt))

	return summary, nil
}

type invokeFunc func(ctx context.Context, id string) (outcome, error)

func (o *Orchestrator) invokeWorkflow(ctx context.Context, id string) (outcome, error) {
	result, err := o.execs.Workflow.ExecuteWorkflow(ctx, id)
	if err != nil {
		return outcome{}, err
	}
	return workflowOutcome(result), nil
}

func (o *Orchestrator) invokeNotebook(ctx context.Context, id string) (outcome, error) {
	result, err := o.execs.Notebook.ExecuteNotebook(ctx, id)
	if err != nil {
		return outcome{}, err
	}
	return notebookOutcome(result), nil
}

func (o *Orchestrator) invokeSync(ctx context.Context, id string) (outcome, error) {
	result, err := o.execs.Sync.ExecuteSync(ctx, id)
	if err != nil {
		return outcome{}, err
	}
	return syncOutcome(result), nil
}

// runFamily processes one family's due set with a bounded worker pool.
// A wholesale failure (the due query itself) is recorded on the report and
// never propagates to the other families.
func (o *Orchestrator) runFamily(ctx context.Context, report *familyReport, store *Store, invoke invokeFunc) {
	cfg := o.config()

	due, err := store.FetchDue(ctx, o.now(), cfg.BatchLimit)
	if err != nil {
		o.logger.Errorw("Failed to fetch due schedules",
			"family", report.family,
			"error", err)
		report.err = err
		return
	}

	if len(due) == 0 {
		return
	}

	o.logger.Infow("Processing due schedules",
		"family", report.family,
		"count", len(due))

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for _, d := range due {
		g.Go(func() error {
			o.process(ctx, report, store, d, invoke, cfg.JobTimeout)
			return nil
		})
	}
	g.Wait()
}

// process claims, executes, and updates one due schedule. Every exit path
// either leaves the claim untaken or releases it via the post-run update.
func (o *Orchestrator) process(ctx context.Context, report *familyReport, store *Store, d *Descriptor, invoke invokeFunc, timeout time.Duration) {
	if err := store.Claim(ctx, d.ID); err != nil {
		if errors.IsClaimConflict(err) {
			// Another pass owns it; it stays eligible for a later pass
			o.logger.Debugw("Schedule already claimed, skipping",
				"family", report.family,
				"schedule_id", d.ID)
		} else {
			o.logger.Warnw("Failed to claim schedule, skipping",
				"family", report.family,
				"schedule_id", d.ID,
				"error", err)
		}
		report.addSkipped()
		return
	}

	if sink := o.eventSink(); sink != nil {
		sink.BroadcastJobStarted(report.family, d.ID, d.Name)
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			// Shutting down mid-pass; give the schedule back
			if relErr := store.ReleaseClaim(context.WithoutCancel(ctx), d.ID); relErr != nil {
				o.logger.Warnw("Failed to release claim", "schedule_id", d.ID, "error", relErr)
			}
			report.addSkipped()
			return
		}
	}

	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execStart := o.now()
	out, execErr := invoke(jobCtx, d.ID)
	duration := o.now().Sub(execStart)

	success := execErr == nil && out.success
	errMsg := out.errMsg
	if execErr != nil {
		if jobCtx.Err() == context.DeadlineExceeded {
			execErr = errors.Wrapf(errors.ErrTimeout, "execution exceeded %s", timeout)
		}
		errMsg = execErr.Error()
	}

	// Scheduling state advances identically on success and failure:
	// the attempt happened, so the count, timestamps, and next run all move.
	attemptedAt := o.now()
	d.ExecutionCount++
	d.LastRunAt = &attemptedAt
	if success {
		d.LastRunStatus = RunStatusSuccess
		d.LastRunError = ""
	} else {
		d.LastRunStatus = RunStatusFailed
		d.LastRunError = errMsg
	}

	d.NextRunAt = o.computeNextRun(d, attemptedAt, &out)

	// Single atomic update; also releases the claim
	if err := store.UpdateAfterRun(context.WithoutCancel(ctx), d); err != nil {
		// At-least-once semantics: the execution already happened and is
		// still reported. Try not to leave the claim stuck.
		o.logger.Errorw("Failed to persist scheduling state after run",
			"family", report.family,
			"schedule_id", d.ID,
			"error", err)
		if relErr := store.ReleaseClaim(context.WithoutCancel(ctx), d.ID); relErr != nil {
			o.logger.Errorw("Failed to release claim after update failure",
				"schedule_id", d.ID,
				"error", relErr)
		}
	}

	result := JobResult{
		ID:         d.ID,
		Name:       d.Name,
		Success:    success,
		Error:      errMsg,
		Metrics:    out.metrics,
		DurationMs: int(duration.Milliseconds()),
	}
	report.addResult(result)

	if sink := o.eventSink(); sink != nil {
		if success {
			sink.BroadcastJobCompleted(report.family, d.ID, d.Name, result.DurationMs)
		} else {
			sink.BroadcastJobFailed(report.family, d.ID, d.Name, errMsg, result.DurationMs)
		}
	}

	if success {
		o.logger.Infow("Schedule executed",
			"family", report.family,
			"schedule_id", d.ID,
			"name", d.Name,
			"duration_ms", result.DurationMs,
			"next_run_at", formatTimePtr(d.NextRunAt))
	} else {
		o.logger.Errorw("Schedule execution failed",
			"family", report.family,
			"schedule_id", d.ID,
			"name", d.Name,
			"duration_ms", result.DurationMs,
			"error", errMsg)
	}
}

// computeNextRun derives the next eligible instant after an attempt.
// One-shots and exhausted schedules go terminal (nil). A recurrence
// computation failure freezes the schedule but is surfaced loudly in the
// log and the job metrics rather than silently swallowed.
func (o *Orchestrator) computeNextRun(d *Descriptor, attemptedAt time.Time, out *outcome) *time.Time {
	if d.Exhausted() {
		o.logger.Infow("Schedule reached execution limit",
			"schedule_id", d.ID,
			"execution_count", d.ExecutionCount,
			"max_executions", *d.MaxExecutions)
		return nil
	}

	next, err := NextRun(d.Recurrence, d.Config, d.Timezone, attemptedAt)
	if err != nil {
		o.logger.Errorw("Failed to compute next run, schedule frozen",
			"schedule_id", d.ID,
			"recurrence", d.Recurrence,
			"error", err)
		if out.metrics == nil {
			out.metrics = Metrics{}
		}
		out.metrics["recurrence_error"] = err.Error()
		return nil
	}

	if next != nil {
		o.logger.Debugw("Next run computed",
			"schedule_id", d.ID,
			"recurrence", d.Recurrence,
			"timezone", d.Timezone,
			"now", attemptedAt,
			"next_run_at", *next)
	}
	return next
}
