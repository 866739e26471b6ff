package content

import (
	"cmp"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/signal-comb/app/database"
	"github.com/lysyi3m/signal-comb/app/sources"
)

const unknownAuthor = "unknown"

// Normalizer turns adapter candidates into canonical content records.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

func (n *Normalizer) Normalize(source database.Source, candidate sources.Candidate) database.ContentItem {
	now := n.now()

	title := cleanText(candidate.Title)
	if title == "" {
		title = fmt.Sprintf("%s signal", source.Name)
	}

	url := strings.TrimSpace(candidate.URL)
	if url == "" {
		url = fmt.Sprintf("%s#%d", source.SourceURL, now.UnixMilli())
	}

	published := now
	if candidate.PublishedAt != nil && !candidate.PublishedAt.IsZero() {
		published = *candidate.PublishedAt
	}

	metadata := database.Metadata{
		"crawler": source.Name,
		"source":  source.SourceURL,
	}
	maps.Copy(metadata, candidate.Metadata)

	views, likes := max(candidate.Views, 0), max(candidate.Likes, 0)
	comments, shares := max(candidate.Comments, 0), max(candidate.Shares, 0)

	return database.ContentItem{
		SourceID:        source.ID,
		TopicID:         source.TopicID,
		Platform:        source.Platform,
		ContentType:     cmp.Or(candidate.ContentType, sources.ContentType(source.Platform)),
		Title:           title,
		Body:            cleanText(candidate.Body),
		URL:             url,
		Author:          cmp.Or(cleanText(candidate.Author), unknownAuthor),
		PublishedAt:     published,
		Views:           views,
		Likes:           likes,
		Comments:        comments,
		Shares:          shares,
		EngagementScore: EngagementScore(views, likes, comments, shares),
		Metadata:        metadata,
	}
}

// cleanText composes text to NFC and drops control characters other than newlines and tabs.
func cleanText(s string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.Predicate(isStrippedControl)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}

func isStrippedControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}
