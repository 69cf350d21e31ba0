package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Source   SourceConfig   `yaml:"source"`
	Staging  StagingConfig  `yaml:"staging"`
	Reports  ReportsConfig  `yaml:"reports"`
	Notify   NotifyConfig   `yaml:"notify"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures the fetch, upload, and notification poll
// intervals. The fetch and upload loops are independent.
type ScheduleConfig struct {
	FetchInterval  string `yaml:"fetch_interval"`
	UploadInterval string `yaml:"upload_interval"`
	NotifyInterval string `yaml:"notify_interval"`
}

// ParseFetchInterval returns the fetch interval as time.Duration.
func (s ScheduleConfig) ParseFetchInterval() time.Duration {
	d, err := time.ParseDuration(s.FetchInterval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// ParseUploadInterval returns the upload interval as time.Duration.
func (s ScheduleConfig) ParseUploadInterval() time.Duration {
	d, err := time.ParseDuration(s.UploadInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// ParseNotifyInterval returns the notification poll interval.
func (s ScheduleConfig) ParseNotifyInterval() time.Duration {
	d, err := time.ParseDuration(s.NotifyInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// SourceConfig holds configuration for the content collectors.
type SourceConfig struct {
	Discussion DiscussionConfig `yaml:"discussion"`
	Feeds      FeedsConfig      `yaml:"feeds"`
}

// DiscussionConfig for the external discussion API.
type DiscussionConfig struct {
	Enabled bool     `yaml:"enabled"`
	BaseURL string   `yaml:"base_url"`
	Token   string   `yaml:"token"`
	Topics  []string `yaml:"topics"`
	RPS     float64  `yaml:"rps"`
}

// FeedsConfig for school announcement feeds.
type FeedsConfig struct {
	Enabled bool       `yaml:"enabled"`
	Feeds   []FeedItem `yaml:"feeds"`
}

// FeedItem is a single feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// StagingConfig configures the staged dataset document.
type StagingConfig struct {
	Path string `yaml:"path"`
}

// ReportsConfig locates the externally produced incident-report
// dataset.
type ReportsConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig configures staff notification destinations and the
// incident poll feeding them.
type NotifyConfig struct {
	// PollLimit caps how many incidents each notification poll reads
	// from the store for diffing.
	PollLimit int           `yaml:"poll_limit"`
	Slack     SlackConfig   `yaml:"slack"`
	Webhook   WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook notifications.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook notifications.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./modwatch.db"},
		Schedule: ScheduleConfig{
			FetchInterval:  "15m",
			UploadInterval: "30m",
			NotifyInterval: "1m",
		},
		Source: SourceConfig{
			Discussion: DiscussionConfig{
				Enabled: true,
				RPS:     2,
			},
			Feeds: FeedsConfig{Enabled: false},
		},
		Staging: StagingConfig{Path: "./staged_content.json"},
		Reports: ReportsConfig{Path: "./incident_reports.json"},
		Notify:  NotifyConfig{PollLimit: 1000},
		Server:  ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODWATCH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MODWATCH_API_BASE_URL"); v != "" {
		cfg.Source.Discussion.BaseURL = v
	}
	if v := os.Getenv("MODWATCH_API_TOKEN"); v != "" {
		cfg.Source.Discussion.Token = v
	}
	if v := os.Getenv("MODWATCH_STAGING_PATH"); v != "" {
		cfg.Staging.Path = v
	}
	if v := os.Getenv("MODWATCH_REPORTS_PATH"); v != "" {
		cfg.Reports.Path = v
	}
	if v := os.Getenv("MODWATCH_SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notify.Slack.WebhookURL = v
		cfg.Notify.Slack.Enabled = true
	}
	if v := os.Getenv("MODWATCH_NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.Webhook.URL = v
		cfg.Notify.Webhook.Enabled = true
	}
}
