package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/lexa/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token err = %v", err)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestConfig_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad driver", func(c *Config) { c.Store.Driver = "mysql" }, "store"},
		{"missing dsn", func(c *Config) { c.Store.DSN = "" }, "store"},
		{"missing library", func(c *Config) { c.Library.Path = "" }, "library"},
		{"goal too large", func(c *Config) { c.Session.Goal = 201 }, "session"},
		{"zero goal", func(c *Config) { c.Session.Goal = 0 }, "session"},
		{"bad time zone", func(c *Config) { c.Session.Timezone = "Mars/Olympus" }, "session"},
		{"short reminder interval", func(c *Config) { c.Reminders.Interval = time.Second }, "reminders"},
		{"bad port", func(c *Config) { c.App.HTTP.Port = 70000 }, "app"},
		{"bad auth mode", func(c *Config) { c.Auth.Mode = "magic" }, "mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestReminderConfig_DisabledIgnoresInterval(t *testing.T) {
	cfg := ReminderConfig{Enabled: false, Interval: 0}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled reminders: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("LEXA_TEST_TOKEN", "s3cret")
	p := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `app:
  log_level: debug
  http:
    port: 9000
store:
  driver: postgres
  dsn: postgres://lexa@localhost/lexa
session:
  goal: 30
  timezone: Europe/Madrid
reminders:
  interval: 15m
auth:
  mode: token
  token: ${LEXA_TEST_TOKEN}
`
	if err := os.WriteFile(p, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9000 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Store.Driver != "postgres" || cfg.Library.Path != "./decks" {
		t.Errorf("store/library = %+v %+v", cfg.Store, cfg.Library)
	}
	if cfg.Session.Goal != 30 || cfg.Reminders.Interval != 15*time.Minute {
		t.Errorf("session/reminders = %+v %+v", cfg.Session, cfg.Reminders)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("token = %q", cfg.Auth.Token)
	}
	loc, err := cfg.Session.Location()
	if err != nil || loc.String() != "Europe/Madrid" {
		t.Errorf("location = %v, %v", loc, err)
	}
}
