// Package config loads palavra configuration from YAML with environment
// overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML strings like "5s" or "10m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all palavra configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Source      SourceConfig      `yaml:"source"`
	Screenshots ScreenshotsConfig `yaml:"screenshots"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Database    DatabaseConfig    `yaml:"database"`
	Language    string            `yaml:"language"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// GeminiConfig configures the model client.
type GeminiConfig struct {
	APIKey      string `yaml:"api_key"`
	VisionModel string `yaml:"vision_model"`
	TextModel   string `yaml:"text_model"`
}

// SourceConfig points at the verse-of-the-day page.
type SourceConfig struct {
	URL           string        `yaml:"url"`
	ScrapeTimeout Duration `yaml:"scrape_timeout"`
	PageTimeout   Duration `yaml:"page_timeout"`
}

// ScreenshotsConfig controls the capture scratch directory.
type ScreenshotsConfig struct {
	Dir    string `yaml:"dir"`
	Retain int    `yaml:"retain"`
}

// SchedulerConfig controls the daily trigger.
type SchedulerConfig struct {
	Hour         int           `yaml:"hour"`
	Minute       int           `yaml:"minute"`
	Timezone     string        `yaml:"timezone"`
	StartupDelay Duration      `yaml:"startup_delay"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Gemini: GeminiConfig{
			VisionModel: "gemini-2.0-flash",
			TextModel:   "gemini-2.0-flash",
		},
		Source: SourceConfig{
			URL:           "https://www.bible.com/pt/verse-of-the-day",
			ScrapeTimeout: Duration(5 * time.Second),
			PageTimeout:   Duration(30 * time.Second),
		},
		Screenshots: ScreenshotsConfig{
			Dir:    "screenshots",
			Retain: 10,
		},
		Scheduler: SchedulerConfig{
			Hour:         6,
			Minute:       0,
			Timezone:     "America/Sao_Paulo",
			StartupDelay: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "palavra.db",
		},
		Language: "pt",
	}
}

// Load reads YAML config from path, applies defaults for missing fields
// and environment overrides on top. A missing file is not an error; the
// defaults plus environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Screenshots.Retain <= 0 {
		cfg.Screenshots.Retain = 10
	}
	if cfg.Source.ScrapeTimeout <= 0 {
		cfg.Source.ScrapeTimeout = Duration(5 * time.Second)
	}
	if cfg.Source.PageTimeout <= 0 {
		cfg.Source.PageTimeout = Duration(30 * time.Second)
	}
	return cfg, nil
}

// applyEnv lets the environment override file values. Secrets are
// expected to arrive this way in deployments.
func (c *Config) applyEnv() {
	if v := os.Getenv("PALAVRA_GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("PALAVRA_SOURCE_URL"); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv("PALAVRA_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("PALAVRA_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Location resolves the scheduler timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
