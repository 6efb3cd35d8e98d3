package config

import (
	"strings"
	"testing"
	"time"

	"github.com/albapepper/scoracle-live/internal/match"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "API_PORT", "PORT", "SIDECHANNEL_BACKEND", "SQLITE_PATH",
		"REDIS_URL", "HISTORY_CAPACITY", "PERSIST_DEBOUNCE", "QUARTERS",
		"QUARTER_SECONDS", "OVERTIME_SECONDS", "STREAM_PUBLISH_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIPort != 8000 {
		t.Errorf("APIPort = %d, want 8000", cfg.APIPort)
	}
	if cfg.SideChannelBackend != "sqlite" || cfg.SQLitePath == "" {
		t.Errorf("side-channel = %q at %q", cfg.SideChannelBackend, cfg.SQLitePath)
	}
	if cfg.Rules != match.DefaultRules() {
		t.Errorf("Rules = %+v, want defaults", cfg.Rules)
	}
	if cfg.PersistDebounce != 0 {
		t.Errorf("PersistDebounce = %v, want 0", cfg.PersistDebounce)
	}
	if cfg.HasDatabase() {
		t.Error("no DATABASE_URL set")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("API_PORT", "")
	t.Setenv("SIDECHANNEL_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PERSIST_DEBOUNCE", "250ms")
	t.Setenv("SESSION_IDLE_TIMEOUT", "90")
	t.Setenv("QUARTERS", "2")
	t.Setenv("QUARTER_SECONDS", "1200")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want PORT fallback 9090", cfg.APIPort)
	}
	if cfg.SideChannelBackend != "redis" {
		t.Errorf("backend = %q, want lower-cased redis", cfg.SideChannelBackend)
	}
	if cfg.PersistDebounce != 250*time.Millisecond {
		t.Errorf("PersistDebounce = %v", cfg.PersistDebounce)
	}
	if cfg.SessionIdleTimeout != 90*time.Second {
		t.Errorf("SessionIdleTimeout = %v, want bare seconds", cfg.SessionIdleTimeout)
	}
	if cfg.Rules.Quarters != 2 || cfg.Rules.QuarterSeconds != 1200 {
		t.Errorf("Rules = %+v", cfg.Rules)
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowOrigins = %q", cfg.CORSAllowOrigins)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			APIPort:            8000,
			SideChannelBackend: "memory",
			Rules:              match.DefaultRules(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory ok", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.SideChannelBackend = "etcd" }, "unknown SIDECHANNEL_BACKEND"},
		{"sqlite without path", func(c *Config) { c.SideChannelBackend = "sqlite" }, "SQLITE_PATH"},
		{"redis without url", func(c *Config) { c.SideChannelBackend = "redis" }, "REDIS_URL"},
		{"postgres without db", func(c *Config) { c.SideChannelBackend = "postgres" }, "DATABASE_URL"},
		{"stream without redis", func(c *Config) { c.StreamPublishEnabled = true }, "STREAM_PUBLISH_ENABLED"},
		{"negative capacity", func(c *Config) { c.HistoryCapacity = -1 }, "HISTORY_CAPACITY"},
		{"zero quarters", func(c *Config) { c.Rules.Quarters = 0 }, "QUARTERS"},
		{"bad port", func(c *Config) { c.APIPort = 70000 }, "API_PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"2s", 2 * time.Second},
		{"15", 15 * time.Second},
		{"soon", time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.value)
		if got := envDuration("TEST_DURATION", time.Minute); got != tt.want {
			t.Errorf("envDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
