package sources

import (
	"net/http"

	"github.com/lysyi3m/signal-comb/app/cfg"
)

// NewDefaultDispatcher wires the reddit, youtube and web adapters from the loaded configuration.
func NewDefaultDispatcher(c *cfg.Cfg, httpClient *http.Client) *Dispatcher {
	web := NewWebAdapter(httpClient, c.UserAgent)

	reddit := NewRedditAdapter(httpClient, c.UserAgent, RedditOptions{
		Credentials: RedditCredentials{
			ClientID:     c.RedditClientID,
			ClientSecret: c.RedditClientSecret,
			Username:     c.RedditUsername,
			Password:     c.RedditPassword,
		},
	})

	youtube := NewYouTubeAdapter(httpClient, c.UserAgent, YouTubeOptions{APIKey: c.YouTubeAPIKey})

	return NewDispatcher(map[Kind]Adapter{
		KindReddit:  reddit,
		KindYouTube: youtube,
		KindBlog:    web,
		KindRSS:     web,
		KindTwitter: web,
		KindWeb:     web,
	}, web)
}
