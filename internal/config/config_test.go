package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LEDGER_API_BASE_URL", "LEDGER_HTTP_TIMEOUT", "LEDGER_DATABASE_URL",
		"LEDGER_LOG_LEVEL", "PORT", "LEDGER_SYNC_INTERVAL", "LEDGER_ARCHIVE_BUCKET",
		"LEDGER_BQ_PROJECT", "LEDGER_BQ_DATASET", "LEDGER_BQ_TABLE",
		"NOTION_TOKEN", "NOTION_DB_ID", "LEDGER_API_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIBaseURL != DefaultBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, DefaultBaseURL)
	}
	if cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, DefaultHTTPTimeout)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("expected empty DatabaseURL, got %q", cfg.DatabaseURL)
	}
	if cfg.BigQueryEnabled() {
		t.Error("BigQuery export should be disabled by default")
	}
	if cfg.APIToken != "" {
		t.Error("API auth should be disabled by default")
	}
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)
	// t.Setenv registers cleanup; unset so godotenv can fill the values.
	os.Unsetenv("LEDGER_API_BASE_URL")
	os.Unsetenv("LEDGER_HTTP_TIMEOUT")
	os.Unsetenv("LEDGER_BQ_PROJECT")

	path := filepath.Join(t.TempDir(), "test.env")
	content := "LEDGER_API_BASE_URL=https://ledger.example.com/api/v0\nLEDGER_HTTP_TIMEOUT=5s\nLEDGER_BQ_PROJECT=proj\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIBaseURL != "https://ledger.example.com/api/v0" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout)
	}
	if !cfg.BigQueryEnabled() {
		t.Error("expected BigQuery export to be enabled")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad timeout", "LEDGER_HTTP_TIMEOUT", "soon"},
		{"bad interval", "LEDGER_SYNC_INTERVAL", "-1m"},
		{"bad url", "LEDGER_API_BASE_URL", "ftp://ledger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}
