// Package config provides environment-driven configuration for podrestore.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL       Secret
	DBMaxConns        int
	Port              string
	ListenHost        string
	CORSOrigins       []string
	LogLevel          string
	DiscoveryScheme   string
	DiscoveryTimeout  time.Duration
	DiscoveryCacheTTL time.Duration
	DiscoveryRetries  int
	ResolveWorkers    int
	LookupTimeout     time.Duration
	ImportTimeout     time.Duration
	MaxArchiveBytes   int64
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory (or at PODRESTORE_ENV_FILE) is loaded
// first; variables already present in the environment win.
func Load() (*Config, error) {
	envFile := envOrDefault("PODRESTORE_ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		DatabaseURL:     Secret(envOrDefault("DATABASE_URL", "")),
		Port:            envOrDefault("PORT", "3040"),
		ListenHost:      envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		DiscoveryScheme: envOrDefault("DISCOVERY_SCHEME", "https"),
	}

	var err error

	if cfg.DBMaxConns, err = envInt("DB_MAX_CONNS", 10); err != nil {
		return nil, err
	}

	if cfg.ResolveWorkers, err = envInt("RESOLVE_WORKERS", 4); err != nil {
		return nil, err
	}

	if cfg.DiscoveryRetries, err = envInt("DISCOVERY_RETRIES", 2); err != nil {
		return nil, err
	}

	maxArchive, err := envInt("MAX_ARCHIVE_BYTES", 32<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxArchiveBytes = int64(maxArchive)

	if cfg.DiscoveryTimeout, err = envDuration("DISCOVERY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.DiscoveryCacheTTL, err = envDuration("DISCOVERY_CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.ImportTimeout, err = envDuration("IMPORT_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.LookupTimeout, err = envDuration("LOOKUP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 10s or 5m: %w", key, err)
	}

	return v, nil
}
