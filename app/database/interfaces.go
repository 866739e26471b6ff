package database

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateURL = errors.New("content with this URL already exists")
)

type SourceRepository interface {
	ListSources(ctx context.Context) ([]Source, error)
	GetSource(ctx context.Context, id string) (*Source, error)
	CreateSource(ctx context.Context, source Source) (*Source, error)
	UpsertSource(ctx context.Context, source Source) (*Source, error)
	UpdateSource(ctx context.Context, source Source) (*Source, error)
	DeleteSource(ctx context.Context, id string) error
	MarkSourcePolled(ctx context.Context, id string, polledAt time.Time) error
	CountSources(ctx context.Context) (int, error)
}

type ContentRepository interface {
	FindContentByURL(ctx context.Context, url string) (*ContentItem, error)
	InsertContent(ctx context.Context, item ContentItem) (*ContentItem, error)
	ListContent(ctx context.Context, limit int) ([]ContentItem, error)
	ListContentBySource(ctx context.Context, sourceID string, limit int) ([]ContentItem, error)
	CountContent(ctx context.Context) (int, error)
}

// RunFinish is the terminal patch applied to a running run record.
type RunFinish struct {
	Status        RunStatus
	ItemsIngested int
	Error         string
	FinishedAt    time.Time
	Metadata      Metadata
}

type RunRepository interface {
	CreateRun(ctx context.Context, run Run) (*Run, error)
	// FinishRun only transitions runs that are still running; finishing a terminal
	// run returns ErrNotFound.
	FinishRun(ctx context.Context, id string, finish RunFinish) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRecentRuns(ctx context.Context, sourceID string, limit int) ([]Run, error)
}
