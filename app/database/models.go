package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Interval maps a frequency to its polling period. Unknown values poll daily.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (f Frequency) Valid() bool {
	return f == FrequencyHourly || f == FrequencyDaily || f == FrequencyWeekly
}

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailed
}

// Metadata is a free-form JSON object stored in a TEXT column.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}

func (m *Metadata) Scan(src any) error {
	data, err := jsonBytes(src)
	if err != nil || data == nil {
		*m = nil
		return err
	}
	return json.Unmarshal(data, m)
}

// SourceParams holds the optional platform-specific settings of a source.
type SourceParams struct {
	Subreddit string `json:"subreddit,omitempty" yaml:"subreddit"`
	Listing   string `json:"listing,omitempty" yaml:"listing"`
	Limit     int    `json:"limit,omitempty" yaml:"limit"`
	ChannelID string `json:"channel_id,omitempty" yaml:"channel_id"`
	Order     string `json:"order,omitempty" yaml:"order"`
}

func (p SourceParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode source params: %w", err)
	}
	return string(data), nil
}

func (p *SourceParams) Scan(src any) error {
	data, err := jsonBytes(src)
	if err != nil || data == nil {
		*p = SourceParams{}
		return err
	}
	return json.Unmarshal(data, p)
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []byte(v), nil
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", src)
	}
}

type Source struct {
	ID           string
	Name         string
	Platform     string
	SourceURL    string
	Active       bool
	Frequency    Frequency
	LastPolledAt *time.Time
	Params       SourceParams
	TopicID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ContentItem struct {
	ID              string
	SourceID        string
	TopicID         string
	Platform        string
	ContentType     string
	Title           string
	Body            string
	URL             string
	Author          string
	PublishedAt     time.Time
	Views           int64
	Likes           int64
	Comments        int64
	Shares          int64
	EngagementScore int
	Metadata        Metadata
	CreatedAt       time.Time
}

// Synthetic reports whether the item is a placeholder produced for an unreachable source.
func (c ContentItem) Synthetic() bool {
	v, ok := c.Metadata["synthetic"].(bool)
	return ok && v
}

type Run struct {
	ID            string
	SourceID      string
	Status        RunStatus
	ItemsIngested int
	Error         string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Metadata      Metadata
}
