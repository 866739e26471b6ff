package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/signal-comb/app/content"
	"github.com/lysyi3m/signal-comb/app/database"
	"github.com/lysyi3m/signal-comb/app/seed"
	"github.com/lysyi3m/signal-comb/app/tasks"
)

const (
	feedItemLimit       = 50
	defaultContentLimit = 50
	maxContentLimit     = 200
)

func NewHandler(sourceRepo database.SourceRepository, contentRepo database.ContentRepository,
	tracker *tasks.RunTracker, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		sourceRepo:  sourceRepo,
		contentRepo: contentRepo,
		generator:   content.NewGenerator(),
		tracker:     tracker,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	id := c.Param("id")

	source, ok := h.loadSource(c, id, false)
	if !ok {
		return
	}

	items, err := h.contentRepo.ListContentBySource(c.Request.Context(), id, feedItemLimit)
	if err != nil {
		slog.Error("Database error", "operation", "list_content", "source", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(*source, items)
	if err != nil {
		slog.Error("RSS generation error", "source", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Header("X-Source-ID", id)
	c.Header("X-Last-Updated", source.UpdatedAt.Format(time.RFC3339))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	health := map[string]interface{}{
		"timestamp":         time.Now().In(time.Local).Format(time.RFC3339),
		"scheduled_sources": len(h.scheduler.ScheduledSourceIDs()),
	}

	if sourceCount, err := h.sourceRepo.CountSources(ctx); err == nil {
		health["sources"] = sourceCount
	}

	if contentCount, err := h.contentRepo.CountContent(ctx); err == nil {
		health["content_items"] = contentCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources, err := h.sourceRepo.ListSources(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]sourceResponse, 0, len(sources))
	for _, source := range sources {
		response = append(response, h.newSourceResponse(source))
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": response,
		"total":   len(response),
	})
}

func (h *Handler) APIGetSource(c *gin.Context) {
	source, ok := h.loadSource(c, c.Param("id"), true)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.newSourceResponse(*source))
}

func (h *Handler) APICreateSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	source := database.Source{
		ID:        strings.TrimSpace(req.ID),
		Name:      req.Name,
		Platform:  req.Platform,
		SourceURL: req.URL,
		Active:    req.Active == nil || *req.Active,
		Frequency: database.Frequency(req.Frequency),
		Params:    req.Params,
		TopicID:   req.TopicID,
	}
	if source.Frequency == "" {
		source.Frequency = database.FrequencyDaily
	}

	if err := validateSource(source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid source", "details": err.Error()})
		return
	}

	if source.ID != "" {
		if _, err := h.sourceRepo.GetSource(c.Request.Context(), source.ID); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Source with this id already exists"})
			return
		}
	}

	created, err := h.sourceRepo.CreateSource(c.Request.Context(), source)
	if err != nil {
		slog.Error("Database error", "operation", "create_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create source"})
		return
	}

	h.resync(c.Request.Context())

	c.JSON(http.StatusCreated, h.newSourceResponse(*created))
}

func (h *Handler) APIUpdateSource(c *gin.Context) {
	source, ok := h.loadSource(c, c.Param("id"), true)
	if !ok {
		return
	}

	var req updateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Name != nil {
		source.Name = *req.Name
	}
	if req.Platform != nil {
		source.Platform = *req.Platform
	}
	if req.URL != nil {
		source.SourceURL = *req.URL
	}
	if req.Frequency != nil {
		source.Frequency = database.Frequency(*req.Frequency)
	}
	if req.Active != nil {
		source.Active = *req.Active
	}
	if req.TopicID != nil {
		source.TopicID = *req.TopicID
	}
	if req.Params != nil {
		source.Params = *req.Params
	}

	if err := validateSource(*source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid source", "details": err.Error()})
		return
	}

	updated, err := h.sourceRepo.UpdateSource(c.Request.Context(), *source)
	if err != nil {
		slog.Error("Database error", "operation", "update_source", "source", source.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update source"})
		return
	}

	h.resync(c.Request.Context())

	c.JSON(http.StatusOK, h.newSourceResponse(*updated))
}

func (h *Handler) APIDeleteSource(c *gin.Context) {
	id := c.Param("id")

	err := h.sourceRepo.DeleteSource(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "delete_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete source"})
		return
	}

	h.resync(c.Request.Context())

	c.Status(http.StatusNoContent)
}

func (h *Handler) APIListRuns(c *gin.Context) {
	source, ok := h.loadSource(c, c.Param("id"), true)
	if !ok {
		return
	}

	limit, err := parseLimit(c.Query("limit"), 0, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runs, err := h.tracker.Recent(c.Request.Context(), source.ID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "source", source.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		response = append(response, newRunResponse(run))
	}

	c.JSON(http.StatusOK, gin.H{
		"source_id": source.ID,
		"runs":      response,
		"total":     len(response),
	})
}

// APIPollSource runs the source immediately through the scheduler's in-flight guard.
func (h *Handler) APIPollSource(c *gin.Context) {
	source, ok := h.loadSource(c, c.Param("id"), true)
	if !ok {
		return
	}

	if !source.Active {
		c.JSON(http.StatusConflict, gin.H{"error": "Source is inactive"})
		return
	}

	previousRunID := h.latestRunID(c.Request.Context(), source.ID)

	ran, err := h.scheduler.RunSource(c.Request.Context(), source.ID)
	if errors.Is(err, tasks.ErrSchedulerStopped) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is shutting down"})
		return
	}
	if !ran {
		c.JSON(http.StatusConflict, gin.H{"error": "A run for this source is already in flight"})
		return
	}

	response := gin.H{"source_id": source.ID, "success": err == nil}
	if err != nil {
		response["error"] = err.Error()
	}

	// A run aborted before it was recorded leaves no new record to report.
	if runs, listErr := h.tracker.Recent(c.Request.Context(), source.ID, 1); listErr == nil &&
		len(runs) > 0 && runs[0].ID != previousRunID {
		response["run"] = newRunResponse(runs[0])
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) latestRunID(ctx context.Context, sourceID string) string {
	runs, err := h.tracker.Recent(ctx, sourceID, 1)
	if err != nil || len(runs) == 0 {
		return ""
	}
	return runs[0].ID
}

func (h *Handler) APIListContent(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"), defaultContentLimit, maxContentLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var items []database.ContentItem
	if sourceID := c.Query("source_id"); sourceID != "" {
		items, err = h.contentRepo.ListContentBySource(c.Request.Context(), sourceID, limit)
	} else {
		items, err = h.contentRepo.ListContent(c.Request.Context(), limit)
	}
	if err != nil {
		slog.Error("Database error", "operation", "list_content", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]contentResponse, 0, len(items))
	for _, item := range items {
		response = append(response, newContentResponse(item))
	}

	c.JSON(http.StatusOK, gin.H{
		"items": response,
		"total": len(response),
	})
}

// loadSource writes the error response itself and reports whether the handler may continue.
func (h *Handler) loadSource(c *gin.Context, id string, asJSON bool) (*database.Source, bool) {
	source, err := h.sourceRepo.GetSource(c.Request.Context(), id)
	if err == nil {
		return source, true
	}

	status := http.StatusInternalServerError
	message := "Database error"
	if errors.Is(err, database.ErrNotFound) {
		status = http.StatusNotFound
		message = "Source not found"
	} else {
		slog.Error("Database error", "operation", "get_source", "source", id, "error", err)
	}

	if asJSON {
		c.JSON(status, gin.H{"error": message})
	} else {
		c.Status(status)
	}
	return nil, false
}

func (h *Handler) resync(ctx context.Context) {
	if err := h.scheduler.Synchronize(ctx); err != nil && !errors.Is(err, tasks.ErrSchedulerStopped) {
		slog.Warn("Source resynchronization after API change failed", "error", err)
	}
}

func (h *Handler) newSourceResponse(source database.Source) sourceResponse {
	scheduled := false
	for _, id := range h.scheduler.ScheduledSourceIDs() {
		if id == source.ID {
			scheduled = true
			break
		}
	}

	return sourceResponse{
		ID:           source.ID,
		Name:         source.Name,
		Platform:     source.Platform,
		URL:          source.SourceURL,
		Active:       source.Active,
		Frequency:    string(source.Frequency),
		LastPolledAt: source.LastPolledAt,
		Params:       source.Params,
		TopicID:      source.TopicID,
		Scheduled:    scheduled,
		InFlight:     h.scheduler.InFlight(source.ID),
		CreatedAt:    source.CreatedAt,
		UpdatedAt:    source.UpdatedAt,
	}
}

func validateSource(source database.Source) error {
	if strings.TrimSpace(source.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(source.Platform) == "" {
		return fmt.Errorf("platform is required")
	}
	if err := seed.ValidateURL(source.SourceURL); err != nil {
		return err
	}
	if !source.Frequency.Valid() {
		return fmt.Errorf("invalid frequency %q: must be hourly, daily or weekly", source.Frequency)
	}
	if source.Params.Limit < 0 {
		return fmt.Errorf("params limit must be non-negative")
	}
	return nil
}

// parseLimit returns fallback for an empty or zero value and caps the result at ceiling when it is positive.
func parseLimit(raw string, fallback, ceiling int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer")
	}
	if limit == 0 {
		return fallback, nil
	}
	if ceiling > 0 && limit > ceiling {
		return ceiling, nil
	}
	return limit, nil
}
