package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/signal-comb/app/database"
)

var _ TaskInterface = (*PollSourceTask)(nil)

// finalizeTimeout bounds the bookkeeping done after a run's own context has ended.
const finalizeTimeout = 10 * time.Second

// PollSourceTask performs one execution for a source: fetch through the dispatcher,
// normalize, gate every item and record the outcome.
type PollSourceTask struct {
	Task
	sourceRepo database.SourceRepository
	dispatcher Dispatcher
	normalizer Normalizer
	gate       ContentGate
	tracker    *RunTracker
}

func NewPollSourceTask(sourceID string, sourceRepo database.SourceRepository, dispatcher Dispatcher,
	normalizer Normalizer, gate ContentGate, tracker *RunTracker) *PollSourceTask {
	return &PollSourceTask{
		Task:       NewTask(TaskTypePollSource, sourceID),
		sourceRepo: sourceRepo,
		dispatcher: dispatcher,
		normalizer: normalizer,
		gate:       gate,
		tracker:    tracker,
	}
}

func (t *PollSourceTask) Execute(ctx context.Context) error {
	source, err := t.sourceRepo.GetSource(ctx, t.SourceID)
	if errors.Is(err, database.ErrNotFound) {
		slog.Debug("Source no longer exists, skipping run", "source_id", t.SourceID)
		return nil
	}
	if err != nil {
		err = fmt.Errorf("failed to load source: %w", err)
		t.recordStandaloneFailure(ctx, err)
		return err
	}
	if !source.Active {
		slog.Debug("Source inactive, skipping run", "source_id", t.SourceID)
		return nil
	}

	run, err := t.tracker.Begin(ctx, *source)
	if err != nil {
		t.recordStandaloneFailure(ctx, err)
		return err
	}

	result := t.dispatcher.Dispatch(ctx, *source)

	newCount, duplicateCount := 0, 0
	for _, candidate := range result.Candidates {
		item := t.normalizer.Normalize(*source, candidate)
		_, created, err := t.gate.Ingest(ctx, item)
		if err != nil {
			return t.fail(ctx, run, fmt.Errorf("failed to ingest content: %w", err))
		}
		if created {
			newCount++
		} else {
			duplicateCount++
		}
	}

	run.ItemsIngested = len(result.Candidates)
	run.Metadata = mergeMetadata(run.Metadata, database.Metadata{
		"kind":       string(result.Kind),
		"new":        newCount,
		"duplicates": duplicateCount,
		"synthetic":  result.Synthetic,
	})

	if result.Err != nil {
		return t.fail(ctx, run, result.Err)
	}

	if err := t.sourceRepo.MarkSourcePolled(ctx, source.ID, time.Now().UTC()); err != nil {
		return t.fail(ctx, run, fmt.Errorf("failed to update last poll time: %w", err))
	}

	if err := t.tracker.Succeed(ctx, run, run.ItemsIngested, nil); err != nil {
		if errors.Is(err, ErrRunFinalized) {
			return err
		}
		return t.fail(ctx, run, err)
	}

	slog.Info("Task completed",
		"type", "PollSource",
		"source", source.Name,
		"platform", source.Platform,
		"duration", t.GetDuration(),
		"total", len(result.Candidates),
		"new", newCount,
		"duplicates", duplicateCount)

	return nil
}

// fail finalizes run as failed; the tracker finalizes even when ctx is already done.
func (t *PollSourceTask) fail(ctx context.Context, run *database.Run, cause error) error {
	if err := t.tracker.Fail(ctx, run, cause); err != nil {
		slog.Error("Failed to record run failure", "source_id", t.SourceID, "run_id", run.ID, "error", err)
	}
	return cause
}

func (t *PollSourceTask) recordStandaloneFailure(ctx context.Context, cause error) {
	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if _, err := t.tracker.FailStandalone(finalizeCtx, t.SourceID, cause); err != nil {
		slog.Error("Failed to record run failure", "source_id", t.SourceID, "error", err)
	}
}
