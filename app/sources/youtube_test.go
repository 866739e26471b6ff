package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/signal-comb/app/database"
)

type youtubeStub struct {
	server       *httptest.Server
	searchHits   atomic.Int32
	videosHits   atomic.Int32
	oembedHits   atomic.Int32
	searchIDs    []string
	searchStatus int
	lastSearch   map[string]string
	lastVideoIDs string
}

func newYouTubeStub(t *testing.T, ids ...string) *youtubeStub {
	t.Helper()

	s := &youtubeStub{searchIDs: ids, searchStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		s.searchHits.Add(1)
		q := r.URL.Query()
		s.lastSearch = map[string]string{
			"key": q.Get("key"), "channelId": q.Get("channelId"), "order": q.Get("order"), "maxResults": q.Get("maxResults"),
		}
		if s.searchStatus != http.StatusOK {
			w.WriteHeader(s.searchStatus)
			return
		}
		items := make([]map[string]any, 0, len(s.searchIDs))
		for _, id := range s.searchIDs {
			items = append(items, map[string]any{"id": map[string]any{"kind": "youtube#video", "videoId": id}})
		}
		items = append(items, map[string]any{"id": map[string]any{"kind": "youtube#playlist"}})
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		s.videosHits.Add(1)
		s.lastVideoIDs = r.URL.Query().Get("id")
		json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{
			{
				"id": "vid1",
				"snippet": map[string]any{
					"title": "Launch day", "description": "We shipped", "channelTitle": "Acme",
					"publishedAt": "2026-02-01T10:00:00Z",
				},
				"statistics": map[string]any{"viewCount": "1500", "likeCount": "120", "commentCount": "14", "favoriteCount": "0"},
			},
		}})
	})
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		s.oembedHits.Add(1)
		if r.URL.Query().Get("format") != "json" || r.URL.Query().Get("url") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"title": "Channel trailer", "author_name": "Acme"})
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func (s *youtubeStub) adapter(apiKey string) *YouTubeAdapter {
	return NewYouTubeAdapter(s.server.Client(), "TestAgent/1.0", YouTubeOptions{
		APIKey:    apiKey,
		APIURL:    s.server.URL + "/youtube/v3",
		OEmbedURL: s.server.URL + "/oembed",
	})
}

func TestYouTubeChannelVideos(t *testing.T) {
	stub := newYouTubeStub(t, "vid1", "vid2")
	source := database.Source{Name: "acme", Platform: "youtube", SourceURL: "https://www.youtube.com/channel/UC_acme-1"}

	candidates, err := stub.adapter("yt-key").FetchCandidates(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "yt-key", stub.lastSearch["key"])
	assert.Equal(t, "UC_acme-1", stub.lastSearch["channelId"])
	assert.Equal(t, "date", stub.lastSearch["order"])
	assert.Equal(t, "5", stub.lastSearch["maxResults"])
	assert.Equal(t, "vid1,vid2", stub.lastVideoIDs)

	first := candidates[0]
	assert.Equal(t, "Launch day", first.Title)
	assert.Equal(t, "We shipped", first.Body)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid1", first.URL)
	assert.Equal(t, "Acme", first.Author)
	assert.Equal(t, int64(1500), first.Views)
	assert.Equal(t, int64(120), first.Likes)
	assert.Equal(t, int64(14), first.Comments)
	assert.Equal(t, "video", first.ContentType)
	assert.Equal(t, "UC_acme-1", first.Metadata["channel_id"])
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2026, first.PublishedAt.Year())

	// vid2 has no statistics in the videos response and keeps zero metrics.
	second := candidates[1]
	assert.Equal(t, "https://www.youtube.com/watch?v=vid2", second.URL)
	assert.Equal(t, int64(0), second.Views)
}

func TestYouTubeExplicitChannelAndParams(t *testing.T) {
	stub := newYouTubeStub(t, "vid1")
	source := database.Source{
		SourceURL: "https://www.youtube.com/@acme",
		Params:    database.SourceParams{ChannelID: "UCexplicit", Order: "viewCount", Limit: 3},
	}

	_, err := stub.adapter("yt-key").FetchCandidates(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, "UCexplicit", stub.lastSearch["channelId"])
	assert.Equal(t, "viewCount", stub.lastSearch["order"])
	assert.Equal(t, "3", stub.lastSearch["maxResults"])
}

func TestYouTubeFallsBackToOEmbed(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		sourceURL string
		ids       []string
		searched  int32
	}{
		{name: "no api key", apiKey: "", sourceURL: "https://www.youtube.com/channel/UC1", ids: []string{"vid1"}, searched: 0},
		{name: "no channel id", apiKey: "yt-key", sourceURL: "https://www.youtube.com/watch?v=abc", ids: []string{"vid1"}, searched: 0},
		{name: "empty search", apiKey: "yt-key", sourceURL: "https://www.youtube.com/c/acme", ids: nil, searched: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newYouTubeStub(t, tt.ids...)
			source := database.Source{Platform: "youtube", SourceURL: tt.sourceURL}

			candidates, err := stub.adapter(tt.apiKey).FetchCandidates(context.Background(), source)
			require.NoError(t, err)
			require.Len(t, candidates, 1)

			c := candidates[0]
			assert.Equal(t, "Channel trailer", c.Title)
			assert.Equal(t, "Acme", c.Author)
			assert.Equal(t, tt.sourceURL, c.URL)
			assert.Equal(t, "video", c.ContentType)
			assert.Zero(t, c.Views+c.Likes+c.Comments+c.Shares)

			assert.Equal(t, tt.searched, stub.searchHits.Load())
			assert.Equal(t, int32(0), stub.videosHits.Load())
			assert.Equal(t, int32(1), stub.oembedHits.Load())
		})
	}
}

func TestYouTubeSearchErrorPropagates(t *testing.T) {
	stub := newYouTubeStub(t, "vid1")
	stub.searchStatus = http.StatusForbidden

	_, err := stub.adapter("yt-key").FetchCandidates(context.Background(), database.Source{
		SourceURL: "https://www.youtube.com/channel/UC1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.NotContains(t, err.Error(), "yt-key", "API key must not leak into error text")
}

func TestExtractChannelID(t *testing.T) {
	assert.Equal(t, "UC123_abc-Z", extractChannelID("https://www.youtube.com/channel/UC123_abc-Z/videos"))
	assert.Equal(t, "acme", extractChannelID("https://youtube.com/c/acme"))
	assert.Equal(t, "", extractChannelID("https://www.youtube.com/@acme"))
}
