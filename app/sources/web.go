package sources

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/signal-comb/app/database"
)

const maxSnippetRunes = 1000

// WebAdapter snapshots a blog, feed or arbitrary page as a single candidate.
type WebAdapter struct {
	fetcher    fetcher
	feedParser *gofeed.Parser
}

var _ Adapter = (*WebAdapter)(nil)

func NewWebAdapter(httpClient *http.Client, userAgent string) *WebAdapter {
	return &WebAdapter{
		fetcher:    fetcher{client: httpClient, userAgent: userAgent},
		feedParser: gofeed.NewParser(),
	}
}

func (a *WebAdapter) FetchCandidates(ctx context.Context, source database.Source) ([]Candidate, error) {
	data, err := a.fetcher.get(ctx, source.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source.SourceURL, err)
	}

	var title, text string
	if gofeed.DetectFeedType(bytes.NewReader(data)) != gofeed.FeedTypeUnknown {
		title, text = a.extractFeed(data)
	} else {
		title, text = extractHTML(data, source.SourceURL)
	}

	author := ""
	if u, err := url.Parse(source.SourceURL); err == nil {
		author = u.Hostname()
	}

	return []Candidate{{
		Title:       cmp.Or(title, source.Name),
		Body:        cmp.Or(text, "Snapshot from "+source.SourceURL),
		URL:         source.SourceURL,
		Author:      author,
		PublishedAt: timePtr(time.Now()),
		ContentType: ContentType(source.Platform),
	}}, nil
}

func (a *WebAdapter) extractFeed(data []byte) (string, string) {
	feed, err := a.feedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return "", ""
	}

	title := strings.TrimSpace(feed.Title)
	if len(feed.Items) == 0 || feed.Items[0] == nil {
		return title, ""
	}

	first := feed.Items[0]
	text := cmp.Or(stripTags(first.Description), strings.TrimSpace(first.Title))
	return title, truncateRunes(text, maxSnippetRunes)
}

func extractHTML(data []byte, pageURL string) (string, string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", ""
	}

	title := collapseSpace(doc.Find("title").First().Text())
	text := collapseSpace(doc.Find("p").First().Text())
	if text == "" {
		text = readabilityText(data, pageURL)
	}

	return title, truncateRunes(text, maxSnippetRunes)
}

func readabilityText(data []byte, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return ""
	}

	return collapseSpace(article.TextContent)
}

func stripTags(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return collapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
