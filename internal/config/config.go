// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/api and cmd/scorectl.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

// --------------------------------------------------------------------------
// Table names, matching db.Schema
// --------------------------------------------------------------------------

const (
	FixturesTable       = "fixtures"
	TeamsTable          = "teams"
	PlayersTable        = "players"
	MatchResultsTable   = "match_results"
	PlayerBoxScoreTable = "player_box_scores"
	KVTable             = "scoring_kv"
)

// CommandChannel is the Postgres NOTIFY channel commands arrive on.
const CommandChannel = "match_command"

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Side-channel
	SideChannelBackend string
	SQLitePath         string
	RedisURL           string
	RedisTTL           time.Duration

	// Live sessions
	HistoryCapacity      int
	PersistDebounce      time.Duration
	SessionIdleTimeout   time.Duration
	StreamPublishEnabled bool
	Rules                match.Rules

	// Remote league API
	LeagueAPIURL string
	LeagueAPIKey string
	LeagueAPIRPM int

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:4321",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		SideChannelBackend: strings.ToLower(envOr("SIDECHANNEL_BACKEND", sidechannel.BackendSQLite)),
		SQLitePath:         envOr("SQLITE_PATH", "data/scoring.db"),
		RedisURL:           envOr("REDIS_URL", ""),
		RedisTTL:           envDuration("REDIS_TTL", sidechannel.DefaultRedisTTL),

		HistoryCapacity:      envInt("HISTORY_CAPACITY", 500),
		PersistDebounce:      envDuration("PERSIST_DEBOUNCE", 0),
		SessionIdleTimeout:   envDuration("SESSION_IDLE_TIMEOUT", 6*time.Hour),
		StreamPublishEnabled: envBool("STREAM_PUBLISH_ENABLED", false),
		Rules: match.Rules{
			Quarters:        envInt("QUARTERS", match.DefaultQuarters),
			QuarterSeconds:  envInt("QUARTER_SECONDS", match.DefaultQuarterSeconds),
			OvertimeSeconds: envInt("OVERTIME_SECONDS", match.DefaultOvertimeSeconds),
		},

		LeagueAPIURL: envOr("LEAGUE_API_URL", ""),
		LeagueAPIKey: envOr("LEAGUE_API_KEY", ""),
		LeagueAPIRPM: envInt("LEAGUE_API_RPM", 60),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.SideChannelBackend {
	case sidechannel.BackendMemory:
	case sidechannel.BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH must be set for the sqlite side-channel"))
		}
	case sidechannel.BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL must be set for the redis side-channel"))
		}
	case sidechannel.BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set for the postgres side-channel"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SIDECHANNEL_BACKEND %q", c.SideChannelBackend))
	}

	if c.StreamPublishEnabled && c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL must be set when STREAM_PUBLISH_ENABLED=true"))
	}
	if c.HistoryCapacity < 0 {
		errs = append(errs, fmt.Errorf("HISTORY_CAPACITY must not be negative, got %d", c.HistoryCapacity))
	}
	if c.Rules.Quarters < 1 || c.Rules.QuarterSeconds < 1 || c.Rules.OvertimeSeconds < 1 {
		errs = append(errs, fmt.Errorf("QUARTERS, QUARTER_SECONDS and OVERTIME_SECONDS must be positive"))
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT out of range: %d", c.APIPort))
	}
	return errors.Join(errs...)
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasDatabase reports whether Postgres-backed features can run.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasLeagueAPI reports whether the remote league API is configured.
func (c *Config) HasLeagueAPI() bool {
	return c.LeagueAPIURL != ""
}

// SideChannelOptions maps the config onto sidechannel.Options. The
// Postgres pool is filled in by the caller.
func (c *Config) SideChannelOptions() sidechannel.Options {
	return sidechannel.Options{
		Backend:    c.SideChannelBackend,
		SQLitePath: c.SQLitePath,
		RedisURL:   c.RedisURL,
		RedisTTL:   c.RedisTTL,
	}
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("250ms", "6h") or a bare number of
// seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
