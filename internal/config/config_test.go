package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Language != "pt" {
		t.Errorf("default language = %q, want pt", cfg.Language)
	}
	if cfg.Screenshots.Retain != 10 {
		t.Errorf("default retain = %d, want 10", cfg.Screenshots.Retain)
	}
	if cfg.Scheduler.Hour != 6 {
		t.Errorf("default hour = %d, want 6", cfg.Scheduler.Hour)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "palavra.yaml")
	body := `
gemini:
  api_key: file-key
  text_model: gemini-2.0-pro
source:
  scrape_timeout: 2s
scheduler:
  hour: 5
  timezone: UTC
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Gemini.APIKey != "file-key" {
		t.Errorf("api_key = %q, want file-key", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.TextModel != "gemini-2.0-pro" {
		t.Errorf("text_model = %q", cfg.Gemini.TextModel)
	}
	if cfg.Source.ScrapeTimeout.Std() != 2*time.Second {
		t.Errorf("scrape_timeout = %v, want 2s", cfg.Source.ScrapeTimeout)
	}
	// Unset fields keep defaults.
	if cfg.Source.URL == "" {
		t.Error("source url default lost")
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("location = %v, want UTC", cfg.Location())
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PALAVRA_GEMINI_API_KEY", "env-key")
	t.Setenv("PALAVRA_DB_PATH", "/tmp/override.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("api_key = %q, want env override", cfg.Gemini.APIKey)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("db path = %q, want env override", cfg.Database.Path)
	}
}

func TestLocation_BadTimezoneFallsBackToUTC(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.Timezone = "Mars/Olympus_Mons"
	if cfg.Location() != time.UTC {
		t.Errorf("bad timezone should fall back to UTC, got %v", cfg.Location())
	}
}
