// Package config loads the daemon's YAML configuration. Defaults, file
// contents and flag overrides are merged in that order, then validated,
// so the rest of the code can assume a well-formed config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // empty means the default under ~/.config/chime
}

type ServerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// SchedulerConfig tunes the scheduler loops and suspend handling.
// Policies are "report_missed" or "pause_shift"; alarms always report.
type SchedulerConfig struct {
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	GapThresholdMS int    `yaml:"gap_threshold_ms"`
	TimerPolicy    string `yaml:"timer_policy"`
	ReminderPolicy string `yaml:"reminder_policy"`
	PomodoroPolicy string `yaml:"pomodoro_policy"`
	InhibitSleep   bool   `yaml:"inhibit_sleep"` // use the logind inhibitor when entities request it
}

type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// Default returns a fully-populated Config.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: ""},
		Server: ServerConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1:5517",
		},
		Scheduler: SchedulerConfig{
			PollIntervalMS: 1000,
			GapThresholdMS: 5000,
			TimerPolicy:    "report_missed",
			ReminderPolicy: "report_missed",
			PomodoroPolicy: "report_missed",
			InhibitSleep:   true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file over the defaults. Unknown fields are
// rejected to catch typos.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}
	return cfg, nil
}

// Overrides holds flag-level overrides applied on top of a loaded
// config. A nil pointer means "not set".
type Overrides struct {
	DBPath     *string
	ListenAddr *string
	Headless   *bool // disables the WS server
	LogLevel   *string
}

// Apply merges the overrides into cfg.
func (o Overrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.DBPath != nil {
		cfg.Database.Path = *o.DBPath
	}
	if o.ListenAddr != nil {
		cfg.Server.ListenAddr = *o.ListenAddr
	}
	if o.Headless != nil && *o.Headless {
		cfg.Server.Enabled = false
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

func validPolicy(p string) bool {
	return p == "report_missed" || p == "pause_shift"
}

// Validate checks config invariants after defaults, file and overrides.
func (c *Config) Validate() error {
	if c.Server.Enabled && c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr must not be empty when the server is enabled")
	}
	if c.Scheduler.PollIntervalMS <= 0 {
		return errors.New("scheduler.poll_interval_ms must be > 0")
	}
	if c.Scheduler.GapThresholdMS <= c.Scheduler.PollIntervalMS {
		return errors.New("scheduler.gap_threshold_ms must be greater than the poll interval")
	}
	if !validPolicy(c.Scheduler.TimerPolicy) {
		return fmt.Errorf("scheduler.timer_policy must be %q or %q", "report_missed", "pause_shift")
	}
	if !validPolicy(c.Scheduler.ReminderPolicy) {
		return fmt.Errorf("scheduler.reminder_policy must be %q or %q", "report_missed", "pause_shift")
	}
	if !validPolicy(c.Scheduler.PomodoroPolicy) {
		return fmt.Errorf("scheduler.pomodoro_policy must be %q or %q", "report_missed", "pause_shift")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

// PollInterval returns the scheduler cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Scheduler.PollIntervalMS) * time.Millisecond
}

// GapThreshold returns the suspend detection threshold as a duration.
func (c *Config) GapThreshold() time.Duration {
	return time.Duration(c.Scheduler.GapThresholdMS) * time.Millisecond
}

// ExpandPath expands a leading "~" using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
