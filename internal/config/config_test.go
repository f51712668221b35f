package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chime.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Scheduler.GapThresholdMS != 5000 || cfg.Scheduler.PollIntervalMS != 1000 {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  timer_policy: pause_shift\nlogging:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scheduler.TimerPolicy != "pause_shift" {
		t.Fatalf("file value not applied: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.ReminderPolicy != "report_missed" {
		t.Fatal("unset fields should keep defaults")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level not applied: %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  timer_polcy: pause_shift\n")
	if _, err := Load(path); err == nil {
		t.Fatal("typoed field should be rejected")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file should error")
	}
}

func TestOverrides(t *testing.T) {
	cfg := Default()
	db := "/tmp/x.db"
	headless := true
	Overrides{DBPath: &db, Headless: &headless}.Apply(&cfg)
	if cfg.Database.Path != db {
		t.Fatalf("db override not applied: %q", cfg.Database.Path)
	}
	if cfg.Server.Enabled {
		t.Fatal("headless override should disable the server")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Scheduler.PollIntervalMS = 0 },
		func(c *Config) { c.Scheduler.GapThresholdMS = 500 },
		func(c *Config) { c.Scheduler.TimerPolicy = "drop" },
		func(c *Config) { c.Logging.Level = "verbose" },
		func(c *Config) { c.Server.ListenAddr = "" },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d should fail validation", i)
		}
	}
}
