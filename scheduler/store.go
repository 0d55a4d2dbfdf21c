package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pacerhq/pacer/errors"
)

// DefaultFetchLimit bounds how many due descriptors one pass pulls per
// family, so a single pass's work stays bounded in time and memory.
const DefaultFetchLimit = 50

// DefaultClaimLease bounds how long a claim stays exclusive. A row stuck in
// running longer than this belongs to a process that died between claiming
// and writing its result, and becomes claimable again.
const DefaultClaimLease = 10 * time.Minute

// Store persists schedule descriptors for one job family. The three family
// tables share the scheduling-field shape; only the notebook table carries
// max_executions.
//
// Timestamps are stored as RFC3339 strings in UTC so lexicographic SQL
// comparisons match chronological order.
type Store struct {
	db               *sql.DB
	table            string
	family           Family
	hasMaxExecutions bool

	mu         sync.RWMutex
	claimLease time.Duration
}

// NewWorkflowStore returns the store backing workflow schedules
func NewWorkflowStore(db *sql.DB) *Store {
	return &Store{db: db, table: "workflow_schedules", family: FamilyWorkflow, claimLease: DefaultClaimLease}
}

// NewNotebookStore returns the store backing notebook schedules
func NewNotebookStore(db *sql.DB) *Store {
	return &Store{db: db, table: "notebook_schedules", family: FamilyNotebook, hasMaxExecutions: true, claimLease: DefaultClaimLease}
}

// NewSyncStore returns the store backing data-sync schedules
func NewSyncStore(db *sql.DB) *Store {
	return &Store{db: db, table: "sync_schedules", family: FamilyDataSync, claimLease: DefaultClaimLease}
}

// SetClaimLease overrides the stale-claim lease. Non-positive values are
// ignored.
func (s *Store) SetClaimLease(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.claimLease = d
	s.mu.Unlock()
}

// leaseCutoff returns the instant before which a running claim counts as
// stale, formatted for SQL comparison.
func (s *Store) leaseCutoff(now time.Time) string {
	s.mu.RLock()
	lease := s.claimLease
	s.mu.RUnlock()
	return now.Add(-lease).UTC().Format(time.RFC3339)
}

// Family returns the job family this store serves
func (s *Store) Family() Family {
	return s.family
}

func (s *Store) columns() string {
	cols := "id, name, recurrence_type, recurrence_config, timezone, is_active, " +
		"start_date, end_date, next_run_at, last_run_at, last_run_status, " +
		"last_run_error, execution_count, created_at, updated_at"
	if s.hasMaxExecutions {
		cols += ", max_executions"
	}
	return cols
}

// Create persists a new schedule descriptor
func (s *Store) Create(ctx context.Context, d *Descriptor) error {
	configJSON, err := d.Config.Marshal()
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	cols := []string{
		"id", "name", "recurrence_type", "recurrence_config", "timezone",
		"is_active", "start_date", "end_date", "next_run_at",
		"execution_count", "created_at", "updated_at",
	}
	args := []interface{}{
		d.ID, d.Name, string(d.Recurrence), configJSON, d.Timezone,
		d.IsActive, formatTimePtr(d.StartDate), formatTimePtr(d.EndDate),
		formatTimePtr(d.NextRunAt), d.ExecutionCount, now, now,
	}
	if s.hasMaxExecutions {
		cols = append(cols, "max_executions")
		args = append(args, d.MaxExecutions)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), placeholders(len(cols)))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		err = errors.Wrap(err, "failed to create schedule")
		err = errors.WithDetail(err, fmt.Sprintf("Schedule ID: %s", d.ID))
		err = errors.WithDetail(err, fmt.Sprintf("Family: %s", s.family))
		return err
	}
	return nil
}

// Get retrieves a schedule descriptor by ID
func (s *Store) Get(ctx context.Context, id string) (*Descriptor, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", s.columns(), s.table)
	d, err := s.scanDescriptor(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("schedule %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get schedule %s", id)
	}
	return d, nil
}

// List returns schedules for this family, newest first
func (s *Store) List(ctx context.Context, limit int) ([]*Descriptor, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC LIMIT ?",
		s.columns(), s.table)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list schedules")
	}
	defer rows.Close()

	return s.collect(rows)
}

// FetchDue returns schedules ready to run at the given instant, ordered by
// next_run_at ascending with never-scheduled rows first (most overdue).
//
// A descriptor is due when it is active, inside its optional start/end
// window, not currently claimed by a pass, not past its execution budget,
// and either next_run_at has arrived or it has never been attempted at all.
// A NULL next_run_at on a row that has already run is terminal (a finished
// one-shot) and is never returned again. A claim older than the lease is
// treated as abandoned and the row is due again.
func (s *Store) FetchDue(ctx context.Context, now time.Time, limit int) ([]*Descriptor, error) {
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	nowStr := now.UTC().Format(time.RFC3339)
	staleStr := s.leaseCutoff(now)

	exhausted := ""
	if s.hasMaxExecutions {
		exhausted = "AND (max_executions IS NULL OR execution_count < max_executions) "
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE is_active = 1
		  AND ((next_run_at IS NULL AND last_run_at IS NULL) OR next_run_at <= ?)
		  AND (start_date IS NULL OR start_date <= ?)
		  AND (end_date IS NULL OR end_date >= ?)
		  AND (last_run_status IS NULL OR last_run_status != ? OR updated_at <= ?)
		  %s
		ORDER BY next_run_at ASC NULLS FIRST
		LIMIT ?
	`, s.columns(), s.table, exhausted)

	rows, err := s.db.QueryContext(ctx, query, nowStr, nowStr, nowStr, RunStatusRunning, staleStr, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch due %s schedules", s.family)
	}
	defer rows.Close()

	return s.collect(rows)
}

// Claim atomically marks a schedule as running. Exactly one of two
// concurrent passes racing for the same schedule wins; the loser gets
// ErrClaimConflict and must skip the schedule for this pass.
//
// The claim is time-bounded: a running row whose updated_at is older than
// the lease counts as abandoned by a dead process and can be claimed over.
// Claiming refreshes updated_at, renewing the lease.
func (s *Store) Claim(ctx context.Context, id string) error {
	now := time.Now()
	query := fmt.Sprintf(`
		UPDATE %s
		SET last_run_status = ?, updated_at = ?
		WHERE id = ? AND (last_run_status IS NULL OR last_run_status != ? OR updated_at <= ?)
	`, s.table)

	result, err := s.db.ExecContext(ctx, query,
		RunStatusRunning, now.UTC().Format(time.RFC3339), id, RunStatusRunning, s.leaseCutoff(now))
	if err != nil {
		return errors.Wrapf(err, "failed to claim schedule %s", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrClaimConflict, "schedule %s", id)
	}
	return nil
}

// ReleaseClaim clears a claim without recording a run. Best-effort recovery
// path for when the post-execution update itself failed.
func (s *Store) ReleaseClaim(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET last_run_status = ?, updated_at = ?
		WHERE id = ? AND last_run_status = ?
	`, s.table)

	_, err := s.db.ExecContext(ctx, query,
		RunStatusFailed, time.Now().UTC().Format(time.RFC3339), id, RunStatusRunning)
	if err != nil {
		return errors.Wrapf(err, "failed to release claim on schedule %s", id)
	}
	return nil
}

// UpdateAfterRun persists the post-execution scheduling state in a single
// atomic update: run timestamps, outcome, incremented execution count, and
// the freshly computed next_run_at. Writing a non-running status releases
// the claim.
func (s *Store) UpdateAfterRun(ctx context.Context, d *Descriptor) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET next_run_at = ?,
		    last_run_at = ?,
		    last_run_status = ?,
		    last_run_error = ?,
		    execution_count = ?,
		    updated_at = ?
		WHERE id = ?
	`, s.table)

	var lastErr interface{}
	if d.LastRunError != "" {
		lastErr = d.LastRunError
	}

	result, err := s.db.ExecContext(ctx, query,
		formatTimePtr(d.NextRunAt),
		formatTimePtr(d.LastRunAt),
		d.LastRunStatus,
		lastErr,
		d.ExecutionCount,
		time.Now().UTC().Format(time.RFC3339),
		d.ID,
	)
	if err != nil {
		err = errors.Wrap(err, "failed to update schedule after run")
		err = errors.WithDetail(err, fmt.Sprintf("Schedule ID: %s", d.ID))
		err = errors.WithDetail(err, fmt.Sprintf("Family: %s", s.family))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("schedule %s", d.ID)
	}
	return nil
}

// SetActive pauses or resumes a schedule
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	query := fmt.Sprintf("UPDATE %s SET is_active = ?, updated_at = ? WHERE id = ?", s.table)

	result, err := s.db.ExecContext(ctx, query, active, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return errors.Wrapf(err, "failed to update schedule %s", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("schedule %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanDescriptor(row rowScanner) (*Descriptor, error) {
	var d Descriptor
	var configJSON, startDate, endDate, nextRunAt, lastRunAt sql.NullString
	var lastRunStatus, lastRunError sql.NullString
	var createdAt, updatedAt string
	var recurrence string
	var maxExecutions sql.NullInt64

	dest := []interface{}{
		&d.ID, &d.Name, &recurrence, &configJSON, &d.Timezone, &d.IsActive,
		&startDate, &endDate, &nextRunAt, &lastRunAt, &lastRunStatus,
		&lastRunError, &d.ExecutionCount, &createdAt, &updatedAt,
	}
	if s.hasMaxExecutions {
		dest = append(dest, &maxExecutions)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	d.Family = s.family
	d.Recurrence = RecurrenceType(recurrence)

	cfg, err := ParseRecurrenceConfig(configJSON.String)
	if err != nil {
		return nil, errors.Wrapf(err, "schedule %s has corrupt recurrence config", d.ID)
	}
	d.Config = cfg

	for _, f := range []struct {
		raw  sql.NullString
		dest **time.Time
	}{
		{startDate, &d.StartDate},
		{endDate, &d.EndDate},
		{nextRunAt, &d.NextRunAt},
		{lastRunAt, &d.LastRunAt},
	} {
		if !f.raw.Valid {
			continue
		}
		t, err := time.Parse(time.RFC3339, f.raw.String)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse timestamp for schedule %s", d.ID)
		}
		*f.dest = &t
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse created_at for schedule %s", d.ID)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for schedule %s", d.ID)
	}

	if lastRunStatus.Valid {
		d.LastRunStatus = lastRunStatus.String
	}
	if lastRunError.Valid {
		d.LastRunError = lastRunError.String
	}
	if maxExecutions.Valid {
		v := int(maxExecutions.Int64)
		d.MaxExecutions = &v
	}

	return &d, nil
}

func (s *Store) collect(rows *sql.Rows) ([]*Descriptor, error) {
	var descriptors []*Descriptor
	for rows.Next() {
		d, err := s.scanDescriptor(rows)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, rows.Err()
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
