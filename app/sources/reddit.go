package sources

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/lysyi3m/signal-comb/app/database"
)

const (
	defaultRedditPublicURL = "https://www.reddit.com"
	defaultRedditOAuthURL  = "https://oauth.reddit.com"
	defaultRedditListing   = "hot"
)

var subredditPattern = regexp.MustCompile(`(?i)reddit\.com/r/([^/?#]+)`)

type RedditOptions struct {
	Credentials RedditCredentials
	// Endpoint overrides; empty values use reddit.com.
	PublicURL string
	OAuthURL  string
	TokenURL  string
}

// RedditAdapter reads a subreddit listing, authenticated when credentials are configured.
type RedditAdapter struct {
	fetcher   fetcher
	publicURL string
	oauthURL  string
	tokens    *tokenCache
}

var _ Adapter = (*RedditAdapter)(nil)

func NewRedditAdapter(httpClient *http.Client, userAgent string, opts RedditOptions) *RedditAdapter {
	a := &RedditAdapter{
		fetcher:   fetcher{client: httpClient, userAgent: userAgent},
		publicURL: cmp.Or(opts.PublicURL, defaultRedditPublicURL),
		oauthURL:  cmp.Or(opts.OAuthURL, defaultRedditOAuthURL),
	}
	if opts.Credentials.complete() {
		a.tokens = newTokenCache(opts.Credentials, cmp.Or(opts.TokenURL, defaultRedditTokenURL), httpClient, userAgent)
	}
	return a
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title               string  `json:"title"`
	Selftext            string  `json:"selftext"`
	Permalink           string  `json:"permalink"`
	Author              string  `json:"author"`
	CreatedUTC          float64 `json:"created_utc"`
	ViewCount           *int64  `json:"view_count"`
	Ups                 int64   `json:"ups"`
	Score               int64   `json:"score"`
	NumComments         int64   `json:"num_comments"`
	TotalAwardsReceived int64   `json:"total_awards_received"`
}

func (a *RedditAdapter) FetchCandidates(ctx context.Context, source database.Source) ([]Candidate, error) {
	subreddit := cmp.Or(source.Params.Subreddit, inferSubreddit(source.SourceURL))
	listing := cmp.Or(source.Params.Listing, defaultRedditListing)
	query := url.Values{"limit": {strconv.Itoa(limitOrDefault(source.Params))}}

	base := a.publicURL
	header := http.Header{}
	if a.tokens != nil {
		token, err := a.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		header.Set("Authorization", "Bearer "+token)
		base = a.oauthURL
	}

	endpoint := fmt.Sprintf("%s/r/%s/%s.json?%s", base, url.PathEscape(subreddit), url.PathEscape(listing), query.Encode())

	var body redditListing
	if err := a.fetcher.getJSON(ctx, endpoint, header, &body); err != nil {
		return nil, fmt.Errorf("reddit listing r/%s: %w", subreddit, err)
	}

	children := body.Data.Children
	if len(children) == 0 {
		return nil, fmt.Errorf("reddit listing r/%s: %w", subreddit, ErrNoItems)
	}
	if len(children) > maxItemsPerRun {
		children = children[:maxItemsPerRun]
	}

	candidates := make([]Candidate, 0, len(children))
	for _, child := range children {
		post := child.Data

		link := source.SourceURL
		if post.Permalink != "" {
			link = "https://reddit.com" + post.Permalink
		}

		published := time.Now()
		if post.CreatedUTC > 0 {
			published = time.Unix(0, int64(post.CreatedUTC*float64(time.Second)))
		}

		var views int64
		if post.ViewCount != nil {
			views = *post.ViewCount
		}

		candidates = append(candidates, Candidate{
			Title:       post.Title,
			Body:        cmp.Or(post.Selftext, post.Title),
			URL:         link,
			Author:      post.Author,
			PublishedAt: timePtr(published),
			Views:       views,
			Likes:       cmp.Or(post.Ups, post.Score),
			Comments:    post.NumComments,
			Shares:      post.TotalAwardsReceived,
			Metadata: map[string]any{
				"subreddit": subreddit,
				"listing":   listing,
			},
		})
	}

	return candidates, nil
}

func inferSubreddit(sourceURL string) string {
	if m := subredditPattern.FindStringSubmatch(sourceURL); m != nil {
		return m[1]
	}
	return "all"
}
