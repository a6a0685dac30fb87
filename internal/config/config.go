// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Engine backend selectors.
const (
	EngineDuckDB   = "duckdb"
	EngineBigQuery = "bigquery"
)

// Config holds the configuration for the event feed service.
type Config struct {
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// Session continuation cache.
	CacheAddr          string        // memcached address; empty selects the in-process store
	SessionTTL         time.Duration // how long a paused session stays resumable (default 10m)
	LockTTL            time.Duration // in-flight marker lifetime (default 30s)
	GuardInFlight      bool          // reject concurrent requests for the same session (default true)
	FallbackStartFresh bool          // treat a continuation-load failure as a miss (default false)

	// Query backend.
	Engine           string        // "duckdb" or "bigquery" (default "duckdb")
	MaxRows          int           // page size (default 50)
	TableMapPath     string        // YAML app id -> table mapping (default "tablemap.yaml")
	DuckDBPath       string        // duckdb database file; empty means in-memory
	JobTTL           time.Duration // duckdb materialized job lifetime (default SessionTTL)
	BigQueryProject  string
	BigQueryLocation string

	// Session history.
	HistoryDBPath string // sqlite file (default "event_feed_history.sqlite")

	// Rate limiting.
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS.
	CORSAllowedOrigins []string // allowed origins (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables and applies
// defaults. It validates combinations that cannot work at runtime.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:         os.Getenv("LISTEN_ADDR"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		Env:                os.Getenv("ENV"),
		CacheAddr:          os.Getenv("CACHE_ADDR"),
		Engine:             strings.ToLower(os.Getenv("ENGINE")),
		TableMapPath:       os.Getenv("TABLE_MAP_PATH"),
		DuckDBPath:         os.Getenv("DUCKDB_PATH"),
		BigQueryProject:    os.Getenv("BIGQUERY_PROJECT"),
		BigQueryLocation:   os.Getenv("BIGQUERY_LOCATION"),
		HistoryDBPath:      os.Getenv("HISTORY_DB_PATH"),
		GuardInFlight:      parseBoolEnvDefault("GUARD_IN_FLIGHT", true),
		FallbackStartFresh: parseBoolEnvDefault("CACHE_FALLBACK_START_FRESH", false),
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("LOCK_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse LOCK_TTL: %w", err)
		}
		cfg.LockTTL = d
	}
	if v := os.Getenv("JOB_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse JOB_TTL: %w", err)
		}
		cfg.JobTTL = d
	}
	if v := os.Getenv("MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_ROWS must be a positive integer, got %q", v)
		}
		cfg.MaxRows = n
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 10 * time.Minute
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.JobTTL == 0 {
		cfg.JobTTL = cfg.SessionTTL
	}
	if cfg.MaxRows == 0 {
		cfg.MaxRows = 50
	}
	if cfg.Engine == "" {
		cfg.Engine = EngineDuckDB
	}
	if cfg.TableMapPath == "" {
		cfg.TableMapPath = "tablemap.yaml"
	}
	if cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = "event_feed_history.sqlite"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	switch cfg.Engine {
	case EngineDuckDB:
	case EngineBigQuery:
		if cfg.BigQueryProject == "" {
			return nil, fmt.Errorf("BIGQUERY_PROJECT is required when ENGINE=bigquery")
		}
	default:
		return nil, fmt.Errorf("ENGINE must be %q or %q, got %q", EngineDuckDB, EngineBigQuery, cfg.Engine)
	}

	// A session that outlives its job can never be resumed.
	if cfg.Engine == EngineDuckDB && cfg.JobTTL < cfg.SessionTTL {
		cfg.Warnings = append(cfg.Warnings, "JOB_TTL is shorter than SESSION_TTL — resumes may fail after the job expires")
	}
	if cfg.CacheAddr == "" {
		cfg.Warnings = append(cfg.Warnings, "CACHE_ADDR not set — using the in-process session store; continuations do not survive restarts")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.CacheAddr == "" {
			return nil, fmt.Errorf("CACHE_ADDR must be set in production (ENV=production)")
		}
	}

	return cfg, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
