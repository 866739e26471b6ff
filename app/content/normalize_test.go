package content

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/signal-comb/app/database"
	"github.com/lysyi3m/signal-comb/app/sources"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return &Normalizer{now: func() time.Time { return fixedNow }}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	source := database.Source{
		ID: "src-1", Name: "Acme", Platform: "YouTube", SourceURL: "https://youtube.com/c/acme", TopicID: "topic-9",
	}

	item := newTestNormalizer().Normalize(source, sources.Candidate{})

	assert.Equal(t, "src-1", item.SourceID)
	assert.Equal(t, "topic-9", item.TopicID)
	assert.Equal(t, "YouTube", item.Platform)
	assert.Equal(t, "video", item.ContentType)
	assert.Equal(t, "Acme signal", item.Title)
	assert.Equal(t, "https://youtube.com/c/acme#1777887000000", item.URL)
	assert.Equal(t, "unknown", item.Author)
	assert.True(t, fixedNow.Equal(item.PublishedAt))
	assert.Equal(t, 0, item.EngagementScore)
	assert.Equal(t, "Acme", item.Metadata["crawler"])
	assert.Equal(t, "https://youtube.com/c/acme", item.Metadata["source"])
	assert.False(t, item.Synthetic())
}

func TestNormalizeKeepsCandidateFields(t *testing.T) {
	published := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	source := database.Source{Name: "demo", Platform: "reddit", SourceURL: "https://example.com/r/demo"}
	candidate := sources.Candidate{
		Title:       "Hello",
		Body:        "World",
		URL:         "https://reddit.com/r/demo/comments/1",
		Author:      "alice",
		PublishedAt: &published,
		Likes:       50,
		Comments:    7,
		ContentType: "thread",
		Metadata:    map[string]any{"subreddit": "demo", "crawler": "override"},
	}

	item := newTestNormalizer().Normalize(source, candidate)

	assert.Equal(t, "Hello", item.Title)
	assert.Equal(t, "World", item.Body)
	assert.Equal(t, candidate.URL, item.URL)
	assert.Equal(t, "alice", item.Author)
	assert.True(t, published.Equal(item.PublishedAt))
	assert.Equal(t, "thread", item.ContentType)
	assert.Equal(t, 12, item.EngagementScore)
	assert.Equal(t, "demo", item.Metadata["subreddit"])
	assert.Equal(t, "override", item.Metadata["crawler"])
	assert.Equal(t, "https://example.com/r/demo", item.Metadata["source"])
}

func TestNormalizeCleansText(t *testing.T) {
	source := database.Source{Name: "demo", Platform: "blog", SourceURL: "https://blog.example.com"}
	candidate := sources.Candidate{
		Title:  "  Cafe\u0301\u0000 menu\u0007 ",
		Body:   "line one\nline\ttwo\u001b",
		Author: "\u0000",
	}

	item := newTestNormalizer().Normalize(source, candidate)

	assert.Equal(t, "Caf\u00e9 menu", item.Title)
	assert.Equal(t, "line one\nline\ttwo", item.Body)
	assert.Equal(t, "article", item.ContentType)
	assert.Equal(t, "unknown", item.Author)
}

func TestNormalizeSyntheticCandidates(t *testing.T) {
	source := database.Source{Name: "Acme", Platform: "reddit", SourceURL: "https://example.com/r/demo"}

	for _, candidate := range sources.Synthetic(source, "HTTP 503") {
		item := newTestNormalizer().Normalize(source, candidate)
		require.True(t, item.Synthetic())
		assert.Equal(t, "signal-comb-bot", item.Author)
		assert.Equal(t, "HTTP 503", item.Metadata["fallback_reason"])
		assert.True(t, strings.Contains(item.URL, "?synthetic="))
		assert.Greater(t, item.EngagementScore, 0)
	}
}
