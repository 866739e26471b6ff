package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ RunRepository = (*RunRepo)(nil)

// RunRepo handles database operations for source run records
type RunRepo struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

const runColumns = `id, source_id, status, items_ingested, COALESCE(error, ''), started_at, finished_at, metadata`

func scanRun(row interface{ Scan(dest ...any) error }) (*Run, error) {
	var run Run
	var status string
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.SourceID, &status, &run.ItemsIngested, &run.Error,
		&run.StartedAt, &finished, &run.Metadata)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// CreateRun stores a new run record. A terminal status also stamps the finish time.
func (r *RunRepo) CreateRun(ctx context.Context, run Run) (*Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	var finished sql.NullTime
	if run.Status.Terminal() {
		now := time.Now().UTC()
		if run.FinishedAt != nil {
			now = run.FinishedAt.UTC()
		}
		finished = sql.NullTime{Time: now, Valid: true}
		run.FinishedAt = &now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO source_runs (id, source_id, status, items_ingested, error, started_at, finished_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.SourceID, string(run.Status), run.ItemsIngested, nullString(run.Error),
		run.StartedAt.UTC(), finished, run.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &run, nil
}

func (r *RunRepo) FinishRun(ctx context.Context, id string, finish RunFinish) (*Run, error) {
	if !finish.Status.Terminal() {
		return nil, fmt.Errorf("run status %q is not terminal", finish.Status)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE source_runs
		SET status = ?, items_ingested = ?, error = ?, finished_at = ?,
		    metadata = COALESCE(?, metadata)
		WHERE id = ? AND status = ?
	`, string(finish.Status), finish.ItemsIngested, nullString(finish.Error), finish.FinishedAt.UTC(),
		finish.Metadata, id, string(RunStatusRunning))
	if err != nil {
		return nil, fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	// The update is committed; reading it back must not fail on a late cancellation.
	return r.GetRun(context.WithoutCancel(ctx), id)
}

func (r *RunRepo) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM source_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (r *RunRepo) ListRecentRuns(ctx context.Context, sourceID string, limit int) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM source_runs
		WHERE source_id = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}
