package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pacerhq/pacer/errors"
)

// PassRecord is one row of the pass history audit trail
type PassRecord struct {
	ID            string          `json:"id"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   time.Time       `json:"completed_at"`
	ExecutedCount int             `json:"executed_count"`
	FailedCount   int             `json:"failed_count"`
	SkippedCount  int             `json:"skipped_count"`
	Summary       json.RawMessage `json:"summary"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PassStore persists completed pass summaries for later inspection
type PassStore struct {
	db *sql.DB
}

// NewPassStore creates a pass history store
func NewPassStore(db *sql.DB) *PassStore {
	return &PassStore{db: db}
}

// RecordPass writes one completed pass into the history table
func (s *PassStore) RecordPass(ctx context.Context, summary *PassSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "failed to marshal pass summary")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pass_history (id, started_at, completed_at, executed_count, failed_count, skipped_count, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.PassID,
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.CompletedAt.UTC().Format(time.RFC3339),
		summary.ExecutedCount,
		summary.FailedCount,
		summary.SkippedCount,
		string(payload),
		now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to record pass")
	}
	return nil
}

// ListRecent returns the most recent passes, newest first
func (s *PassStore) ListRecent(ctx context.Context, limit int) ([]*PassRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, executed_count, failed_count, skipped_count, summary, created_at
		FROM pass_history
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pass history")
	}
	defer rows.Close()

	var records []*PassRecord
	for rows.Next() {
		var rec PassRecord
		var startedAt, completedAt, createdAt, summary string
		if err := rows.Scan(&rec.ID, &startedAt, &completedAt,
			&rec.ExecutedCount, &rec.FailedCount, &rec.SkippedCount,
			&summary, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan pass record")
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		rec.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		rec.Summary = json.RawMessage(summary)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate pass history")
	}
	return records, nil
}

// Get returns one pass record by ID
func (s *PassStore) Get(ctx context.Context, id string) (*PassRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, executed_count, failed_count, skipped_count, summary, created_at
		FROM pass_history WHERE id = ?`, id)

	var rec PassRecord
	var startedAt, completedAt, createdAt, summary string
	err := row.Scan(&rec.ID, &startedAt, &completedAt,
		&rec.ExecutedCount, &rec.FailedCount, &rec.SkippedCount,
		&summary, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("pass %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pass record")
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	rec.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.Summary = json.RawMessage(summary)
	return &rec, nil
}
