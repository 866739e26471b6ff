package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath     string
	SourcesDir string

	// Application configuration
	Port         string
	BaseUrl      string
	SyncInterval int
	RunTimeout   int
	HTTPTimeout  int
	APIAccessKey string

	// Platform integrations
	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	YouTubeAPIKey      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) SyncIntervalDuration() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

func (c *Cfg) RunTimeoutDuration() time.Duration {
	return time.Duration(c.RunTimeout) * time.Second
}

func (c *Cfg) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// RedditAuthAvailable reports whether all four reddit credentials are set.
func (c *Cfg) RedditAuthAvailable() bool {
	return c.RedditClientID != "" && c.RedditClientSecret != "" &&
		c.RedditUsername != "" && c.RedditPassword != ""
}
