package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/lysyi3m/signal-comb/app/database"
)

const (
	maxErrorRunes   = 500
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// ErrRunFinalized is returned when finishing a run that already reached a terminal status.
var ErrRunFinalized = errors.New("run already finalized")

// RunTracker records one run per source execution and finalizes it exactly once.
type RunTracker struct {
	repo database.RunRepository
	now  func() time.Time
}

func NewRunTracker(repo database.RunRepository) *RunTracker {
	return &RunTracker{repo: repo, now: time.Now}
}

func (t *RunTracker) Begin(ctx context.Context, source database.Source) (*database.Run, error) {
	run, err := t.repo.CreateRun(ctx, database.Run{
		SourceID:  source.ID,
		Status:    database.RunStatusRunning,
		StartedAt: t.now().UTC(),
		Metadata: database.Metadata{
			"platform":   source.Platform,
			"source_url": source.SourceURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}
	return run, nil
}

// Succeed finalizes run as successful and merges meta into its metadata snapshot.
func (t *RunTracker) Succeed(ctx context.Context, run *database.Run, ingested int, meta database.Metadata) error {
	return t.finish(ctx, run, database.RunFinish{
		Status:        database.RunStatusSuccess,
		ItemsIngested: ingested,
		Metadata:      mergeMetadata(run.Metadata, meta),
	})
}

func (t *RunTracker) Fail(ctx context.Context, run *database.Run, cause error) error {
	return t.finish(ctx, run, database.RunFinish{
		Status:        database.RunStatusFailed,
		ItemsIngested: run.ItemsIngested,
		Error:         truncateError(cause),
		Metadata:      run.Metadata,
	})
}

// FailStandalone records a failed run for an execution that broke before a run was begun.
func (t *RunTracker) FailStandalone(ctx context.Context, sourceID string, cause error) (*database.Run, error) {
	now := t.now().UTC()
	run, err := t.repo.CreateRun(ctx, database.Run{
		SourceID:   sourceID,
		Status:     database.RunStatusFailed,
		Error:      truncateError(cause),
		StartedAt:  now,
		FinishedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record failed run: %w", err)
	}
	return run, nil
}

// Recent lists a source's latest runs, newest first. Non-positive limits use the default.
func (t *RunTracker) Recent(ctx context.Context, sourceID string, limit int) ([]database.Run, error) {
	switch {
	case limit <= 0:
		limit = defaultRunLimit
	case limit > maxRunLimit:
		limit = maxRunLimit
	}
	return t.repo.ListRecentRuns(ctx, sourceID, limit)
}

// finish runs detached from ctx so a cancellation arriving mid-finalize cannot leave the
// stored status and the caller's view of it disagreeing.
func (t *RunTracker) finish(ctx context.Context, run *database.Run, finish database.RunFinish) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	finish.FinishedAt = t.now().UTC()

	updated, err := t.repo.FinishRun(ctx, run.ID, finish)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, ErrRunFinalized)
	}
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}

	*run = *updated
	slog.Debug("Run finalized", "run_id", run.ID, "source_id", run.SourceID, "status", string(run.Status))
	return nil
}

func mergeMetadata(base, extra database.Metadata) database.Metadata {
	if base == nil && extra == nil {
		return nil
	}
	merged := make(database.Metadata, len(base)+len(extra))
	maps.Copy(merged, base)
	maps.Copy(merged, extra)
	return merged
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	runes := []rune(err.Error())
	if len(runes) <= maxErrorRunes {
		return string(runes)
	}
	return string(runes[:maxErrorRunes])
}
