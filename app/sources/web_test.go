package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/signal-comb/app/database"
)

func serveBody(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestAgent/1.0" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWebAdapterExtractsTitleAndFirstParagraph(t *testing.T) {
	server := serveBody(t, "text/html", `<!DOCTYPE html>
<html><head><title>  Release notes  </title></head>
<body>
<nav><a href="/">home</a></nav>
<p>Version 2 ships <b>faster</b> builds
and <a href="/x">better</a> caching.</p>
<p>Second paragraph.</p>
</body></html>`)

	adapter := NewWebAdapter(server.Client(), "TestAgent/1.0")
	source := database.Source{Name: "Acme blog", Platform: "blog", SourceURL: server.URL + "/posts"}

	candidates, err := adapter.FetchCandidates(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "Release notes", c.Title)
	assert.Equal(t, "Version 2 ships faster builds and better caching.", c.Body)
	assert.Equal(t, source.SourceURL, c.URL)
	assert.Equal(t, "127.0.0.1", c.Author)
	assert.Equal(t, "article", c.ContentType)
	assert.Zero(t, c.Views+c.Likes+c.Comments+c.Shares)
}

func TestWebAdapterDefaultsForBarePage(t *testing.T) {
	server := serveBody(t, "text/html", `<html><body><div></div></body></html>`)

	adapter := NewWebAdapter(server.Client(), "TestAgent/1.0")
	source := database.Source{Name: "Bare", Platform: "twitter", SourceURL: server.URL}

	candidates, err := adapter.FetchCandidates(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Bare", candidates[0].Title)
	assert.Equal(t, "Snapshot from "+server.URL, candidates[0].Body)
	assert.Equal(t, "thread", candidates[0].ContentType)
}

func TestWebAdapterReadsFeeds(t *testing.T) {
	server := serveBody(t, "application/rss+xml", `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Ops Weekly</title>
<link>https://ops.example.com</link>
<description>Weekly ops notes</description>
<item><title>Incident review</title><description>&lt;p&gt;What went &lt;em&gt;wrong&lt;/em&gt;&lt;/p&gt;</description></item>
<item><title>Older</title></item>
</channel></rss>`)

	adapter := NewWebAdapter(server.Client(), "TestAgent/1.0")
	candidates, err := adapter.FetchCandidates(context.Background(), database.Source{
		Name: "ops", Platform: "rss", SourceURL: server.URL + "/feed.xml",
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Ops Weekly", candidates[0].Title)
	assert.Equal(t, "What went wrong", candidates[0].Body)
	assert.Equal(t, "post", candidates[0].ContentType)
}

func TestWebAdapterTruncatesLongParagraphs(t *testing.T) {
	server := serveBody(t, "text/html", "<html><body><p>"+strings.Repeat("word ", 600)+"</p></body></html>")

	adapter := NewWebAdapter(server.Client(), "TestAgent/1.0")
	candidates, err := adapter.FetchCandidates(context.Background(), database.Source{SourceURL: server.URL})
	require.NoError(t, err)
	assert.Len(t, []rune(candidates[0].Body), maxSnippetRunes)
}

func TestWebAdapterFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewWebAdapter(server.Client(), "TestAgent/1.0")
	_, err := adapter.FetchCandidates(context.Background(), database.Source{SourceURL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
