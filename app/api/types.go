package api

import (
	"time"

	"github.com/lysyi3m/signal-comb/app/content"
	"github.com/lysyi3m/signal-comb/app/database"
	"github.com/lysyi3m/signal-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(source database.Source, items []database.ContentItem) (string, error)
}

var _ GeneratorInterface = (*content.Generator)(nil)

type Handler struct {
	sourceRepo  database.SourceRepository
	contentRepo database.ContentRepository
	generator   GeneratorInterface
	tracker     *tasks.RunTracker
	scheduler   tasks.TaskSchedulerInterface
}

type createSourceRequest struct {
	ID        string                `json:"id"`
	Name      string                `json:"name" binding:"required"`
	Platform  string                `json:"platform" binding:"required"`
	URL       string                `json:"url" binding:"required"`
	Frequency string                `json:"frequency"`
	Active    *bool                 `json:"active"`
	TopicID   string                `json:"topic_id"`
	Params    database.SourceParams `json:"params"`
}

type updateSourceRequest struct {
	Name      *string                `json:"name"`
	Platform  *string                `json:"platform"`
	URL       *string                `json:"url"`
	Frequency *string                `json:"frequency"`
	Active    *bool                  `json:"active"`
	TopicID   *string                `json:"topic_id"`
	Params    *database.SourceParams `json:"params"`
}

type sourceResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Platform     string                `json:"platform"`
	URL          string                `json:"url"`
	Active       bool                  `json:"active"`
	Frequency    string                `json:"frequency"`
	LastPolledAt *time.Time            `json:"last_polled_at"`
	Params       database.SourceParams `json:"params"`
	TopicID      string                `json:"topic_id,omitempty"`
	Scheduled    bool                  `json:"scheduled"`
	InFlight     bool                  `json:"in_flight"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type runResponse struct {
	ID            string            `json:"id"`
	SourceID      string            `json:"source_id"`
	Status        string            `json:"status"`
	ItemsIngested int               `json:"items_ingested"`
	Error         string            `json:"error,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    *time.Time        `json:"finished_at"`
	Metadata      database.Metadata `json:"metadata,omitempty"`
}

type contentResponse struct {
	ID              string            `json:"id"`
	SourceID        string            `json:"source_id,omitempty"`
	TopicID         string            `json:"topic_id,omitempty"`
	Platform        string            `json:"platform"`
	ContentType     string            `json:"content_type"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	URL             string            `json:"url"`
	Author          string            `json:"author"`
	PublishedAt     time.Time         `json:"published_at"`
	Views           int64             `json:"views"`
	Likes           int64             `json:"likes"`
	Comments        int64             `json:"comments"`
	Shares          int64             `json:"shares"`
	EngagementScore int               `json:"engagement_score"`
	Metadata        database.Metadata `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func newRunResponse(run database.Run) runResponse {
	return runResponse{
		ID:            run.ID,
		SourceID:      run.SourceID,
		Status:        string(run.Status),
		ItemsIngested: run.ItemsIngested,
		Error:         run.Error,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		Metadata:      run.Metadata,
	}
}

func newContentResponse(item database.ContentItem) contentResponse {
	return contentResponse{
		ID:              item.ID,
		SourceID:        item.SourceID,
		TopicID:         item.TopicID,
		Platform:        item.Platform,
		ContentType:     item.ContentType,
		Title:           item.Title,
		Body:            item.Body,
		URL:             item.URL,
		Author:          item.Author,
		PublishedAt:     item.PublishedAt,
		Views:           item.Views,
		Likes:           item.Likes,
		Comments:        item.Comments,
		Shares:          item.Shares,
		EngagementScore: item.EngagementScore,
		Metadata:        item.Metadata,
		CreatedAt:       item.CreatedAt,
	}
}
