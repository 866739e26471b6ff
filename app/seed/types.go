package seed

import "github.com/lysyi3m/signal-comb/app/database"

type Config struct {
	ID        string                // Derived from filename (without .yml extension)
	Name      string                `yaml:"name"`
	Platform  string                `yaml:"platform"`
	URL       string                `yaml:"url"`
	Frequency string                `yaml:"frequency"`
	Active    *bool                 `yaml:"active"` // nil means active
	TopicID   string                `yaml:"topic_id"`
	Params    database.SourceParams `yaml:"params"`
}

func (c *Config) Enabled() bool {
	return c.Active == nil || *c.Active
}

// Source converts the seed entry into the stored source configuration.
func (c *Config) Source() database.Source {
	return database.Source{
		ID:        c.ID,
		Name:      c.Name,
		Platform:  c.Platform,
		SourceURL: c.URL,
		Active:    c.Enabled(),
		Frequency: database.Frequency(c.Frequency),
		Params:    c.Params,
		TopicID:   c.TopicID,
	}
}
