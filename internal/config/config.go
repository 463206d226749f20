// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL      = "http://localhost:3000/api/v0"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultSyncInterval = 5 * time.Minute
	DefaultPort         = "8080"
	DefaultLogLevel     = "info"
)

// Config holds every setting the binaries need. Optional integrations are
// disabled when their fields are empty.
type Config struct {
	APIBaseURL   string
	HTTPTimeout  time.Duration
	DatabaseURL  string // empty selects the in-memory store
	LogLevel     string
	Port         string
	APIToken     string // bearer token for the local API, empty disables auth
	SyncInterval time.Duration

	ArchiveBucket string

	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string

	NotionToken string
	NotionDBID  string
}

// Load reads the optional env files (".env" when none are given) and then the
// process environment. A missing env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		APIBaseURL:      getenv("LEDGER_API_BASE_URL", DefaultBaseURL),
		DatabaseURL:     os.Getenv("LEDGER_DATABASE_URL"),
		LogLevel:        getenv("LEDGER_LOG_LEVEL", DefaultLogLevel),
		Port:            getenv("PORT", DefaultPort),
		APIToken:        os.Getenv("LEDGER_API_TOKEN"),
		ArchiveBucket:   os.Getenv("LEDGER_ARCHIVE_BUCKET"),
		BigQueryProject: os.Getenv("LEDGER_BQ_PROJECT"),
		BigQueryDataset: getenv("LEDGER_BQ_DATASET", "finance"),
		BigQueryTable:   getenv("LEDGER_BQ_TABLE", "ledger_snapshots"),
		NotionToken:     os.Getenv("NOTION_TOKEN"),
		NotionDBID:      os.Getenv("NOTION_DB_ID"),
	}

	var err error
	if cfg.HTTPTimeout, err = getDuration("LEDGER_HTTP_TIMEOUT", DefaultHTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = getDuration("LEDGER_SYNC_INTERVAL", DefaultSyncInterval); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that every binary depends on.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("config: LEDGER_API_BASE_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: LEDGER_HTTP_TIMEOUT must be positive")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("config: LEDGER_SYNC_INTERVAL must be positive")
	}
	return nil
}

// BigQueryEnabled reports whether snapshot export is configured.
func (c *Config) BigQueryEnabled() bool {
	return c.BigQueryProject != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
