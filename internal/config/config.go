package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// APIConfig tunes the HTTP API.
type APIConfig struct {
	// WriteRatePerSec limits mutating requests server-wide. 0 disables
	// the limit.
	WriteRatePerSec int `yaml:"write_rate_per_sec" json:"write_rate_per_sec"`
}

// AgendaConfig controls the daily agenda digest.
type AgendaConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Cron is a 5-field cron expression evaluated in Timezone.
	Cron string `yaml:"cron" json:"cron"`
}

// ImportConfig bounds ICS imports.
type ImportConfig struct {
	// HorizonDays is the default window after the start day that
	// recurring events are expanded into.
	HorizonDays            int `yaml:"horizon_days" json:"horizon_days"`
	MaxOccurrencesPerEvent int `yaml:"max_occurrences_per_event" json:"max_occurrences_per_event"`
	TimeoutSec             int `yaml:"timeout_sec" json:"timeout_sec"`
}

// CaptureConfig sets the viewport for PNG captures of a day page.
type CaptureConfig struct {
	Width      int `yaml:"width" json:"width"`
	Height     int `yaml:"height" json:"height"`
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone day keys and clock times are read in.
	// "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// TimeFormat is a Go time layout used for rendered rows.
	TimeFormat string `yaml:"time_format" json:"time_format"`

	API     APIConfig     `yaml:"api" json:"api"`
	Agenda  AgendaConfig  `yaml:"agenda" json:"agenda"`
	Import  ImportConfig  `yaml:"import" json:"import"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if set with both fields, protects every endpoint except
	// /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen     = "127.0.0.1:8080"
	defaultTimezone   = "Local"
	defaultLogLevel   = "info"
	defaultTimeFormat = "3:04 PM"
	defaultAgendaCron = "0 7 * * *"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:     defaultListen,
		Timezone:   defaultTimezone,
		LogLevel:   defaultLogLevel,
		TimeFormat: defaultTimeFormat,
		API:        APIConfig{WriteRatePerSec: 20},
		Agenda:     AgendaConfig{Enabled: true, Cron: defaultAgendaCron},
		Import: ImportConfig{
			HorizonDays:            30,
			MaxOccurrencesPerEvent: 500,
			TimeoutSec:             15,
		},
		Capture: CaptureConfig{Width: 800, Height: 1200, TimeoutSec: 30},
	}
}

// Normalize fills in missing/zero values with defaults so partially
// filled files still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = d.Listen
	}
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = d.Timezone
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = d.LogLevel
	}
	if strings.TrimSpace(c.TimeFormat) == "" {
		c.TimeFormat = d.TimeFormat
	}
	if c.API.WriteRatePerSec < 0 {
		c.API.WriteRatePerSec = 0
	}
	if strings.TrimSpace(c.Agenda.Cron) == "" {
		c.Agenda.Cron = d.Agenda.Cron
	}
	if c.Import.HorizonDays <= 0 {
		c.Import.HorizonDays = d.Import.HorizonDays
	}
	if c.Import.MaxOccurrencesPerEvent <= 0 {
		c.Import.MaxOccurrencesPerEvent = d.Import.MaxOccurrencesPerEvent
	}
	if c.Import.TimeoutSec <= 0 {
		c.Import.TimeoutSec = d.Import.TimeoutSec
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = d.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = d.Capture.Height
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = d.Capture.TimeoutSec
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// Location resolves Timezone. Unknown zones fall back to time.Local with
// the lookup error.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there
//     with 0600 perms and returned.
//   - Otherwise the YAML is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Return cfg along with the error so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".itinerary-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

// ApplyEnv overrides fields from ITINERARY_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv("ITINERARY_LISTEN")); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(getenv("ITINERARY_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(getenv("ITINERARY_TIMEZONE")); v != "" {
		c.Timezone = v
	}
}
