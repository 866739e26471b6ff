package sources

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/signal-comb/app/database"
)

const (
	defaultYouTubeAPIURL    = "https://www.googleapis.com/youtube/v3"
	defaultYouTubeOEmbedURL = "https://www.youtube.com/oembed"
	defaultYouTubeOrder     = "date"
)

var channelPattern = regexp.MustCompile(`(?i)youtube\.com/(?:c/|channel/)([A-Za-z0-9_-]+)`)

type YouTubeOptions struct {
	APIKey string
	// Endpoint overrides; empty values use the public YouTube endpoints.
	APIURL    string
	OEmbedURL string
}

// YouTubeAdapter lists a channel's recent videos through the Data API and falls
// back to an oEmbed lookup of the source URL when the API cannot be used.
type YouTubeAdapter struct {
	fetcher   fetcher
	apiKey    string
	apiURL    string
	oembedURL string
}

var _ Adapter = (*YouTubeAdapter)(nil)

func NewYouTubeAdapter(httpClient *http.Client, userAgent string, opts YouTubeOptions) *YouTubeAdapter {
	return &YouTubeAdapter{
		fetcher:   fetcher{client: httpClient, userAgent: userAgent},
		apiKey:    opts.APIKey,
		apiURL:    strings.TrimSuffix(cmp.Or(opts.APIURL, defaultYouTubeAPIURL), "/"),
		oembedURL: cmp.Or(opts.OEmbedURL, defaultYouTubeOEmbedURL),
	}
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type youtubeVideosResponse struct {
	Items []youtubeVideo `json:"items"`
}

type youtubeVideo struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount     string `json:"viewCount"`
		LikeCount     string `json:"likeCount"`
		CommentCount  string `json:"commentCount"`
		FavoriteCount string `json:"favoriteCount"`
	} `json:"statistics"`
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

func (a *YouTubeAdapter) FetchCandidates(ctx context.Context, source database.Source) ([]Candidate, error) {
	channelID := cmp.Or(source.Params.ChannelID, extractChannelID(source.SourceURL))
	if a.apiKey == "" || channelID == "" {
		return a.fetchOEmbed(ctx, source)
	}

	search := url.Values{
		"key":        {a.apiKey},
		"channelId":  {channelID},
		"part":       {"snippet"},
		"order":      {cmp.Or(source.Params.Order, defaultYouTubeOrder)},
		"maxResults": {strconv.Itoa(limitOrDefault(source.Params))},
	}

	var searchResp youtubeSearchResponse
	if err := a.fetcher.getJSON(ctx, a.apiURL+"/search?"+search.Encode(), nil, &searchResp); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	var videoIDs []string
	for _, item := range searchResp.Items {
		if item.ID.VideoID != "" {
			videoIDs = append(videoIDs, item.ID.VideoID)
		}
	}
	if len(videoIDs) == 0 {
		return a.fetchOEmbed(ctx, source)
	}

	videos := url.Values{
		"key":  {a.apiKey},
		"part": {"snippet,statistics"},
		"id":   {strings.Join(videoIDs, ",")},
	}

	var videosResp youtubeVideosResponse
	if err := a.fetcher.getJSON(ctx, a.apiURL+"/videos?"+videos.Encode(), nil, &videosResp); err != nil {
		return nil, fmt.Errorf("youtube videos: %w", err)
	}

	byID := make(map[string]youtubeVideo, len(videosResp.Items))
	for _, video := range videosResp.Items {
		byID[video.ID] = video
	}

	candidates := make([]Candidate, 0, len(videoIDs))
	for _, id := range videoIDs {
		video := byID[id]

		published := time.Now()
		if t, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt); err == nil {
			published = t
		}

		candidates = append(candidates, Candidate{
			Title:       video.Snippet.Title,
			Body:        video.Snippet.Description,
			URL:         "https://www.youtube.com/watch?v=" + id,
			Author:      video.Snippet.ChannelTitle,
			PublishedAt: timePtr(published),
			Views:       parseCount(video.Statistics.ViewCount),
			Likes:       parseCount(video.Statistics.LikeCount),
			Comments:    parseCount(video.Statistics.CommentCount),
			Shares:      parseCount(video.Statistics.FavoriteCount),
			ContentType: "video",
			Metadata:    map[string]any{"channel_id": channelID},
		})
	}

	return candidates, nil
}

func (a *YouTubeAdapter) fetchOEmbed(ctx context.Context, source database.Source) ([]Candidate, error) {
	query := url.Values{"url": {source.SourceURL}, "format": {"json"}}

	var payload oembedResponse
	if err := a.fetcher.getJSON(ctx, a.oembedURL+"?"+query.Encode(), nil, &payload); err != nil {
		return nil, fmt.Errorf("youtube oEmbed: %w", err)
	}

	return []Candidate{{
		Title:       payload.Title,
		Body:        payload.AuthorName,
		URL:         source.SourceURL,
		Author:      payload.AuthorName,
		PublishedAt: timePtr(time.Now()),
		ContentType: "video",
	}}, nil
}

func extractChannelID(sourceURL string) string {
	if m := channelPattern.FindStringSubmatch(sourceURL); m != nil {
		return m[1]
	}
	return ""
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
