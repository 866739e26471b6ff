package sources

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lysyi3m/signal-comb/app/database"
)

// Kind is the adapter family a source platform maps to.
type Kind string

const (
	KindReddit  Kind = "reddit"
	KindYouTube Kind = "youtube"
	KindBlog    Kind = "blog"
	KindRSS     Kind = "rss"
	KindTwitter Kind = "twitter"
	KindWeb     Kind = "web"
)

// ParseKind matches a platform name case-insensitively. Unknown platforms are KindWeb.
func ParseKind(platform string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(platform))); k {
	case KindReddit, KindYouTube, KindBlog, KindRSS, KindTwitter:
		return k
	default:
		return KindWeb
	}
}

// ContentType is the default content kind produced by a platform.
func ContentType(platform string) string {
	switch ParseKind(platform) {
	case KindYouTube:
		return "video"
	case KindBlog:
		return "article"
	case KindTwitter:
		return "thread"
	default:
		return "post"
	}
}

// maxItemsPerRun caps how many entries one listing contributes to a run.
const maxItemsPerRun = 5

var ErrNoItems = errors.New("source returned no items")

// Candidate is an adapter's raw view of one piece of content before normalization.
// Zero values are filled in by the normalizer.
type Candidate struct {
	Title       string
	Body        string
	URL         string
	Author      string
	PublishedAt *time.Time
	Views       int64
	Likes       int64
	Comments    int64
	Shares      int64
	ContentType string
	Metadata    map[string]any
}

// Adapter turns one source configuration into content candidates.
type Adapter interface {
	FetchCandidates(ctx context.Context, source database.Source) ([]Candidate, error)
}

func limitOrDefault(params database.SourceParams) int {
	if params.Limit > 0 {
		return params.Limit
	}
	return maxItemsPerRun
}

func timePtr(t time.Time) *time.Time {
	return &t
}
