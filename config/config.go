package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/acctdash/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config represents the complete dashboard configuration
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Log       logging.Config  `json:"log" yaml:"log"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
}

// ServerConfig points at the trading-account backend
type ServerConfig struct {
	BaseURL   string `json:"base_url" yaml:"base_url"`
	EventsURL string `json:"events_url,omitempty" yaml:"events_url,omitempty"` // defaults to ws(s)://<base>/events
	Timeout   string `json:"timeout" yaml:"timeout"`
}

// SessionConfig says where login state is persisted
type SessionConfig struct {
	Path string `json:"path" yaml:"path"`
}

// DashboardConfig holds the timer periods of the live view
type DashboardConfig struct {
	TickInterval    string `json:"tick_interval" yaml:"tick_interval"`
	SampleInterval  string `json:"sample_interval" yaml:"sample_interval"`
	RefreshInterval string `json:"refresh_interval" yaml:"refresh_interval"`
	FlashWindow     string `json:"flash_window" yaml:"flash_window"`
	HistorySize     int    `json:"history_size" yaml:"history_size"`
	Account         string `json:"account,omitempty" yaml:"account,omitempty"` // preselected account id
}

// JournalConfig contains PnL sample journaling parameters
type JournalConfig struct {
	Type    string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	CSVPath string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// HTTPConfig is the listen address of the local JSON API
type HTTPConfig struct {
	Listen string `json:"listen" yaml:"listen"`
}

// Durations holds the parsed dashboard periods
type Durations struct {
	Timeout         time.Duration
	TickInterval    time.Duration
	SampleInterval  time.Duration
	RefreshInterval time.Duration
	FlashWindow     time.Duration
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.base_url must be an http(s) URL")
	}
	if c.Server.EventsURL != "" {
		u, err := url.Parse(c.Server.EventsURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("server.events_url must be a ws(s) URL")
		}
	}
	if c.Session.Path == "" {
		return fmt.Errorf("session.path is required")
	}

	d, err := c.Durations()
	if err != nil {
		return err
	}
	for name, v := range map[string]time.Duration{
		"server.timeout":             d.Timeout,
		"dashboard.tick_interval":    d.TickInterval,
		"dashboard.sample_interval":  d.SampleInterval,
		"dashboard.refresh_interval": d.RefreshInterval,
		"dashboard.flash_window":     d.FlashWindow,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Dashboard.HistorySize <= 0 {
		return fmt.Errorf("dashboard.history_size must be positive")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.CSVPath == "" {
			return fmt.Errorf("journal csv_path required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.HTTP.Listen == "" {
		return fmt.Errorf("http.listen is required")
	}
	return nil
}

// Durations parses the duration strings
func (c *Config) Durations() (Durations, error) {
	var d Durations
	fields := []struct {
		name string
		in   string
		out  *time.Duration
	}{
		{"server.timeout", c.Server.Timeout, &d.Timeout},
		{"dashboard.tick_interval", c.Dashboard.TickInterval, &d.TickInterval},
		{"dashboard.sample_interval", c.Dashboard.SampleInterval, &d.SampleInterval},
		{"dashboard.refresh_interval", c.Dashboard.RefreshInterval, &d.RefreshInterval},
		{"dashboard.flash_window", c.Dashboard.FlashWindow, &d.FlashWindow},
	}
	for _, f := range fields {
		v, err := time.ParseDuration(f.in)
		if err != nil {
			return Durations{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.out = v
	}
	return d, nil
}

// DefaultSessionPath is $HOME/.acctdash/session.yaml
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".acctdash-session.yaml"
	}
	return filepath.Join(home, ".acctdash", "session.yaml")
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8080",
			Timeout: "30s",
		},
		Session: SessionConfig{
			Path: DefaultSessionPath(),
		},
		Dashboard: DashboardConfig{
			TickInterval:    "500ms",
			SampleInterval:  "5s",
			RefreshInterval: "10s",
			FlashWindow:     "2s",
			HistorySize:     60,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Log: logging.Config{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		HTTP: HTTPConfig{
			Listen: "127.0.0.1:8090",
		},
	}
}
