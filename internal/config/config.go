package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultServiceHost    = "https://bsky.social"
	DefaultChatProxy      = "did:web:api.bsky.chat#bsky_chat"
	DefaultRefreshSeconds = 30
	DefaultLogPollSeconds = 10
	DefaultPageLimit      = 50
	DefaultMaxPages       = 5
	DefaultRequestsPerSec = 5.0
	DefaultRequestBurst   = 10
	maxServicePageLimit   = 100
)

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	Format    string `json:"format"`
	LogToFile bool   `json:"log_to_file"`
}

// ServiceConfig points the client at the account's PDS and chat service.
type ServiceConfig struct {
	Host      string `json:"host"`
	ChatProxy string `json:"chat_proxy"`
	TokenFile string `json:"token_file"`
}

// SyncConfig tunes the refresh and log-poll loops.
type SyncConfig struct {
	RefreshIntervalSeconds int     `json:"refresh_interval_seconds"`
	LogPollIntervalSeconds int     `json:"log_poll_interval_seconds"`
	PageLimit              int     `json:"page_limit"`
	MaxPages               int     `json:"max_pages"`
	RequestsPerSecond      float64 `json:"requests_per_second"`
	RequestBurst           int     `json:"request_burst"`
}

// ModerationConfig maps label values to a visibility verdict ("hide" removes
// the labeled account's conversations from unread counting).
type ModerationConfig struct {
	LabelVisibility map[string]string `json:"label_visibility"`
}

// NotificationConfig stores desktop notification preferences.
type NotificationConfig struct {
	IncomingMessage bool `json:"incoming_message"`
}

// TelemetryConfig holds optional crash reporting settings.
type TelemetryConfig struct {
	SentryDSN string `json:"sentry_dsn"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Service       ServiceConfig      `json:"service"`
	Sync          SyncConfig         `json:"sync"`
	Moderation    ModerationConfig   `json:"moderation"`
	Notifications NotificationConfig `json:"notifications"`
	Logging       LoggingConfig      `json:"logging"`
	Telemetry     TelemetryConfig    `json:"telemetry"`
}

func Default() AppConfig {
	return AppConfig{
		Service: ServiceConfig{
			Host:      DefaultServiceHost,
			ChatProxy: DefaultChatProxy,
			TokenFile: "",
		},
		Sync: SyncConfig{
			RefreshIntervalSeconds: DefaultRefreshSeconds,
			LogPollIntervalSeconds: DefaultLogPollSeconds,
			PageLimit:              DefaultPageLimit,
			MaxPages:               DefaultMaxPages,
			RequestsPerSecond:      DefaultRequestsPerSec,
			RequestBurst:           DefaultRequestBurst,
		},
		Moderation: ModerationConfig{
			LabelVisibility: map[string]string{
				"!hide": "hide",
				"!warn": "warn",
			},
		},
		Notifications: NotificationConfig{
			IncomingMessage: true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			LogToFile: false,
		},
		Telemetry: TelemetryConfig{},
	}
}

func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	if strings.TrimSpace(c.Service.Host) == "" {
		c.Service.Host = DefaultServiceHost
	}
	if strings.TrimSpace(c.Service.ChatProxy) == "" {
		c.Service.ChatProxy = DefaultChatProxy
	}
	if c.Sync.RefreshIntervalSeconds <= 0 {
		c.Sync.RefreshIntervalSeconds = DefaultRefreshSeconds
	}
	if c.Sync.LogPollIntervalSeconds <= 0 {
		c.Sync.LogPollIntervalSeconds = DefaultLogPollSeconds
	}
	if c.Sync.PageLimit <= 0 {
		c.Sync.PageLimit = DefaultPageLimit
	}
	if c.Sync.PageLimit > maxServicePageLimit {
		c.Sync.PageLimit = maxServicePageLimit
	}
	if c.Sync.MaxPages <= 0 {
		c.Sync.MaxPages = DefaultMaxPages
	}
	if c.Sync.RequestsPerSecond <= 0 {
		c.Sync.RequestsPerSecond = DefaultRequestsPerSec
	}
	if c.Sync.RequestBurst <= 0 {
		c.Sync.RequestBurst = DefaultRequestBurst
	}
	if c.Moderation.LabelVisibility == nil {
		c.Moderation.LabelVisibility = Default().Moderation.LabelVisibility
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c AppConfig) Validate() error {
	host := strings.TrimSpace(c.Service.Host)
	if host == "" {
		return errors.New("service host is required")
	}
	u, err := url.Parse(host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("service host must be an absolute URL: %q", c.Service.Host)
	}
	if strings.TrimSpace(c.Service.ChatProxy) == "" {
		return errors.New("chat proxy DID is required")
	}
	if c.Sync.RefreshIntervalSeconds <= 0 {
		return errors.New("refresh interval must be positive")
	}
	if c.Sync.LogPollIntervalSeconds <= 0 {
		return errors.New("log poll interval must be positive")
	}
	if c.Sync.PageLimit <= 0 || c.Sync.PageLimit > maxServicePageLimit {
		return fmt.Errorf("page limit must be within 1..%d", maxServicePageLimit)
	}
	for label, visibility := range c.Moderation.LabelVisibility {
		switch visibility {
		case "hide", "warn", "ignore":
		default:
			return fmt.Errorf("unknown visibility %q for label %q", visibility, label)
		}
	}

	return nil
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
