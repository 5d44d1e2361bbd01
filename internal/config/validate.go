package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateDiscovery(); err != nil {
		return err
	}

	return c.validateImport()
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	dbHost := dbURL.Hostname()
	if !isLoopback(dbHost) {
		if dbURL.Query().Get("sslmode") == "disable" {
			return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbHost)
		}
	}

	if c.DBMaxConns < 2 || c.DBMaxConns > 100 {
		return fmt.Errorf("DB_MAX_CONNS must be between 2 and 100")
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local deployments, 0.0.0.0/:: when a container boundary
	// is enforced externally.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateDiscovery() error {
	if c.DiscoveryScheme != "https" && c.DiscoveryScheme != "http" {
		return fmt.Errorf("DISCOVERY_SCHEME must be 'https' or 'http', got %q", c.DiscoveryScheme)
	}

	if c.DiscoveryTimeout < 100*time.Millisecond || c.DiscoveryTimeout > time.Minute {
		return fmt.Errorf("DISCOVERY_TIMEOUT must be between 100ms and 1m")
	}

	if c.DiscoveryCacheTTL < 0 {
		return fmt.Errorf("DISCOVERY_CACHE_TTL must not be negative")
	}

	if c.DiscoveryRetries < 0 || c.DiscoveryRetries > 5 {
		return fmt.Errorf("DISCOVERY_RETRIES must be between 0 and 5")
	}

	return nil
}

func (c *Config) validateImport() error {
	if c.ResolveWorkers < 1 || c.ResolveWorkers > 16 {
		return fmt.Errorf("RESOLVE_WORKERS must be an integer between 1 and 16")
	}

	if c.ImportTimeout < time.Second {
		return fmt.Errorf("IMPORT_TIMEOUT must be at least 1s")
	}

	if c.ImportTimeout <= c.DiscoveryTimeout {
		return fmt.Errorf("IMPORT_TIMEOUT must be longer than DISCOVERY_TIMEOUT")
	}

	if c.LookupTimeout < c.DiscoveryTimeout || c.LookupTimeout > c.ImportTimeout {
		return fmt.Errorf("LOOKUP_TIMEOUT must be between DISCOVERY_TIMEOUT and IMPORT_TIMEOUT")
	}

	if c.MaxArchiveBytes < 1<<10 || c.MaxArchiveBytes > 1<<30 {
		return fmt.Errorf("MAX_ARCHIVE_BYTES must be between 1 KiB and 1 GiB")
	}

	return nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
