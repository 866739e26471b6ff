package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/signal-comb/app/database"
	"github.com/lysyi3m/signal-comb/app/testsupport"
)

func TestRunTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	repos := testsupport.NewRepos(t)
	tracker := NewRunTracker(repos.Runs)

	source := database.Source{ID: "src-1", Platform: "reddit", SourceURL: "https://example.com/r/demo"}
	run, err := tracker.Begin(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, database.RunStatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)
	assert.Equal(t, "reddit", run.Metadata["platform"])

	require.NoError(t, tracker.Succeed(ctx, run, 2, database.Metadata{"new": 2}))
	assert.Equal(t, database.RunStatusSuccess, run.Status)
	assert.Equal(t, 2, run.ItemsIngested)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, "https://example.com/r/demo", run.Metadata["source_url"])
	assert.EqualValues(t, 2, run.Metadata["new"])

	err = tracker.Fail(ctx, run, errors.New("late failure"))
	assert.True(t, errors.Is(err, ErrRunFinalized))

	stored, err := repos.Runs.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, database.RunStatusSuccess, stored.Status, "terminal runs are never reopened")
	assert.Empty(t, stored.Error)
}

func TestRunTrackerFinalizesAfterContextCancelled(t *testing.T) {
	repos := testsupport.NewRepos(t)
	tracker := NewRunTracker(repos.Runs)

	ctx, cancel := context.WithCancel(context.Background())
	run, err := tracker.Begin(ctx, database.Source{ID: "src-1"})
	require.NoError(t, err)
	cancel()

	require.NoError(t, tracker.Succeed(ctx, run, 3, nil))
	assert.Equal(t, database.RunStatusSuccess, run.Status)
	assert.Equal(t, 3, run.ItemsIngested)

	stored, err := repos.Runs.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, database.RunStatusSuccess, stored.Status)
	assert.Equal(t, 3, stored.ItemsIngested)
}

func TestRunTrackerFailTruncatesError(t *testing.T) {
	ctx := context.Background()
	repos := testsupport.NewRepos(t)
	tracker := NewRunTracker(repos.Runs)

	run, err := tracker.Begin(ctx, database.Source{ID: "src-1"})
	require.NoError(t, err)

	require.NoError(t, tracker.Fail(ctx, run, errors.New(strings.Repeat("é", 800))))
	assert.Equal(t, database.RunStatusFailed, run.Status)
	assert.Len(t, []rune(run.Error), 500)

	assert.True(t, errors.Is(tracker.Succeed(ctx, run, 1, nil), ErrRunFinalized))
}

func TestRunTrackerFailStandalone(t *testing.T) {
	ctx := context.Background()
	repos := testsupport.NewRepos(t)
	tracker := NewRunTracker(repos.Runs)

	run, err := tracker.FailStandalone(ctx, "src-1", errors.New("database is locked"))
	require.NoError(t, err)
	assert.Equal(t, database.RunStatusFailed, run.Status)
	assert.Equal(t, "database is locked", run.Error)
	require.NotNil(t, run.FinishedAt)

	runs, err := tracker.Recent(ctx, "src-1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestRunTrackerRecentLimits(t *testing.T) {
	ctx := context.Background()
	repos := testsupport.NewRepos(t)
	tracker := NewRunTracker(repos.Runs)

	for i := 0; i < 105; i++ {
		_, err := tracker.Begin(ctx, database.Source{ID: "src-1"})
		require.NoError(t, err)
	}

	tests := []struct {
		limit    int
		expected int
	}{
		{0, 20},
		{-3, 20},
		{5, 5},
		{500, 100},
	}
	for _, tt := range tests {
		runs, err := tracker.Recent(ctx, "src-1", tt.limit)
		require.NoError(t, err)
		assert.Len(t, runs, tt.expected, "limit %d", tt.limit)
	}

	runs, err := tracker.Recent(ctx, "other", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
