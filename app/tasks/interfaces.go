package tasks

import (
	"context"

	"github.com/lysyi3m/signal-comb/app/database"
	"github.com/lysyi3m/signal-comb/app/sources"
)

// TaskSchedulerInterface is the scheduler surface used by main and the HTTP API.
type TaskSchedulerInterface interface {
	Start() error
	Stop()
	Synchronize(ctx context.Context) error
	RunSource(ctx context.Context, sourceID string) (bool, error)
	ScheduledSourceIDs() []string
	InFlight(sourceID string) bool
}

type Dispatcher interface {
	Dispatch(ctx context.Context, source database.Source) sources.Result
}

type Normalizer interface {
	Normalize(source database.Source, candidate sources.Candidate) database.ContentItem
}

// ContentGate stores an item unless its URL is already present.
type ContentGate interface {
	Ingest(ctx context.Context, item database.ContentItem) (database.ContentItem, bool, error)
}
