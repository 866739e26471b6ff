package seed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/signal-comb/app/database"
)

// Loader reads source seed files from a directory, one source per *.yml file.
type Loader struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewLoader(sourcesDir string) *Loader {
	return &Loader{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (l *Loader) Run() error {
	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		sourceID := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := l.LoadConfig(sourceID)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source seed loaded", "source", sourceID, "platform", config.Platform, "active", config.Enabled())
	}

	return nil
}

func (l *Loader) LoadConfig(sourceID string) (*Config, error) {
	configFile := filepath.Join(l.sourcesDir, sourceID+".yml")
	config, err := l.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.ID = sourceID

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[config.ID] = config

	return config, nil
}

func (l *Loader) GetConfig(sourceID string) (*Config, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	config, ok := l.cache[sourceID]
	if !ok {
		return nil, fmt.Errorf("source config with id '%s' not found", sourceID)
	}
	return config, nil
}

// GetConfigs returns the loaded entries ordered by source ID.
func (l *Loader) GetConfigs() []*Config {
	l.mu.RLock()
	defer l.mu.RUnlock()

	configs := make([]*Config, 0, len(l.cache))
	for _, c := range l.cache {
		configs = append(configs, c)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs
}

func (l *Loader) GetConfigCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

// Sync upserts every loaded entry into the source store. Configuration fields are
// overwritten; the last poll time of existing sources is kept.
func (l *Loader) Sync(ctx context.Context, repo database.SourceRepository) (int, error) {
	synced := 0
	for _, config := range l.GetConfigs() {
		if _, err := repo.UpsertSource(ctx, config.Source()); err != nil {
			return synced, fmt.Errorf("failed to sync source %s: %w", config.ID, err)
		}
		synced++
	}
	return synced, nil
}

func (l *Loader) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Frequency == "" {
		config.Frequency = string(database.FrequencyDaily)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	requiredFields := map[string]string{
		"source id": config.ID,
		"name":      config.Name,
		"platform":  config.Platform,
		"url":       config.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if strings.TrimSpace(fieldValue) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if err := ValidateURL(config.URL); err != nil {
		return err
	}

	if !database.Frequency(config.Frequency).Valid() {
		return fmt.Errorf("invalid frequency %q: must be hourly, daily or weekly", config.Frequency)
	}

	if config.Params.Limit < 0 {
		return fmt.Errorf("params limit must be non-negative")
	}

	return nil
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	return nil
}
