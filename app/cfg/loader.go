package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./signal-comb.db" description:"Path to the sqlite database file"`
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source seed files (*.yml)"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://signals.example.com)"`
	SyncInterval int    `long:"sync-interval" env:"SYNC_INTERVAL" default:"60" description:"Source resynchronization interval in seconds"`
	RunTimeout   int    `long:"run-timeout" env:"RUN_TIMEOUT" default:"300" description:"Deadline for a single source run in seconds"`
	HTTPTimeout  int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"Timeout for outbound HTTP requests in seconds"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Platform integrations
	RedditClientID     string `long:"reddit-client-id" env:"REDDIT_CLIENT_ID" description:"Reddit OAuth client ID"`
	RedditClientSecret string `long:"reddit-client-secret" env:"REDDIT_CLIENT_SECRET" description:"Reddit OAuth client secret"`
	RedditUsername     string `long:"reddit-username" env:"REDDIT_USERNAME" description:"Reddit account used for the password grant"`
	RedditPassword     string `long:"reddit-password" env:"REDDIT_PASSWORD" description:"Reddit account password"`
	YouTubeAPIKey      string `long:"youtube-api-key" env:"YOUTUBE_API_KEY" description:"YouTube Data API key"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"CRAWLER_USER_AGENT" default:"SignalComb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:             raw.DBPath,
		SourcesDir:         raw.SourcesDir,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		SyncInterval:       raw.SyncInterval,
		RunTimeout:         raw.RunTimeout,
		HTTPTimeout:        raw.HTTPTimeout,
		APIAccessKey:       raw.APIAccessKey,
		RedditClientID:     raw.RedditClientID,
		RedditClientSecret: raw.RedditClientSecret,
		RedditUsername:     raw.RedditUsername,
		RedditPassword:     raw.RedditPassword,
		YouTubeAPIKey:      raw.YouTubeAPIKey,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) validate() error {
	positiveFields := map[string]int{
		"sync interval": c.SyncInterval,
		"run timeout":   c.RunTimeout,
		"http timeout":  c.HTTPTimeout,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else if loc.String() != time.Local.String() {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
