package sources

import (
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/signal-comb/app/database"
)

const (
	syntheticItemCount = 3
	syntheticAuthor    = "signal-comb-bot"
)

// Synthetic builds the placeholder candidates stored when a source cannot be read,
// so downstream consumers still have data to show. Every candidate carries
// synthetic=true in its metadata.
func Synthetic(source database.Source, reason string) []Candidate {
	if reason == "" {
		reason = "unreachable source"
	}

	now := time.Now()
	base := strings.TrimSuffix(source.SourceURL, "/")

	candidates := make([]Candidate, 0, syntheticItemCount)
	for i := 0; i < syntheticItemCount; i++ {
		n := int64(i)
		candidates = append(candidates, Candidate{
			Title:       fmt.Sprintf("%s synthetic insight #%d", source.Name, i+1),
			Body:        fmt.Sprintf("Unable to reach %s. Generated placeholder insight (%s).", source.SourceURL, reason),
			URL:         fmt.Sprintf("%s?synthetic=%d-%d", base, now.UnixMilli(), i),
			Author:      syntheticAuthor,
			PublishedAt: timePtr(now.Add(-time.Duration(i) * time.Hour)),
			Views:       400 + n*80,
			Likes:       90 + n*15,
			Comments:    25 + n*5,
			Shares:      10 + n*3,
			ContentType: ContentType(source.Platform),
			Metadata: map[string]any{
				"synthetic":       true,
				"fallback_reason": reason,
			},
		})
	}

	return candidates
}
