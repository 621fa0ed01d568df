// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	Port int

	// StoreDriver selects the backend: DriverPostgres or DriverMongo.
	StoreDriver string
	DBDSN       string // required for postgres

	MongoURI      string // required for mongo
	MongoDatabase string

	// StopThresholdMeters is the arrival radius around a stop.
	StopThresholdMeters float64

	// Stop records are immutable, so lookups are cached. Size 0 disables it.
	StopCacheSize int
	StopCacheTTL  time.Duration

	RequestTimeout time.Duration
}

// Load reads a .env file if present, then reads and validates the
// environment. Variables already set in the environment win over .env.
// Returns a ConfigError for the first missing or invalid value.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreDriver:    getenvDefault("STORE_DRIVER", DriverPostgres),
		DBDSN:          os.Getenv("DB_DSN"),
		MongoURI:       os.Getenv("MONGODB_URI"),
		MongoDatabase:  getenvDefault("MONGODB_DATABASE", "bus_ease"),
		StopCacheTTL:   parseDurationEnv("STOP_CACHE_TTL", 10*time.Minute),
		RequestTimeout: parseDurationEnv("REQUEST_TIMEOUT", 10*time.Second),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DBDSN == "" {
			return nil, &ConfigError{Field: "DB_DSN", Message: "required but not set"}
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			return nil, &ConfigError{Field: "MONGODB_URI", Message: "required but not set"}
		}
	default:
		return nil, &ConfigError{Field: "STORE_DRIVER", Message: "must be postgres or mongo"}
	}

	port, err := parseIntEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port < 1 || port > 65535 {
		return nil, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"}
	}
	cfg.Port = port

	cfg.StopThresholdMeters = 200
	if raw := os.Getenv("STOP_THRESHOLD_METERS"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return nil, &ConfigError{Field: "STOP_THRESHOLD_METERS", Message: "must be a positive number"}
		}
		cfg.StopThresholdMeters = v
	}

	size, err := parseIntEnv("STOP_CACHE_SIZE", 1024)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, &ConfigError{Field: "STOP_CACHE_SIZE", Message: "must not be negative"}
	}
	cfg.StopCacheSize = size

	return cfg, nil
}

// Validate re-checks required fields on an already-constructed Config.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DBDSN == "" {
			errs = append(errs, &ConfigError{Field: "DB_DSN", Message: "cannot be empty"})
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, &ConfigError{Field: "MONGODB_URI", Message: "cannot be empty"})
		}
		if c.MongoDatabase == "" {
			errs = append(errs, &ConfigError{Field: "MONGODB_DATABASE", Message: "cannot be empty"})
		}
	default:
		errs = append(errs, &ConfigError{Field: "STORE_DRIVER", Message: "must be postgres or mongo"})
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"})
	}
	if c.StopThresholdMeters <= 0 {
		errs = append(errs, &ConfigError{Field: "STOP_THRESHOLD_METERS", Message: "must be positive"})
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, &ConfigError{Field: "REQUEST_TIMEOUT", Message: "must be positive"})
	}
	return errors.Join(errs...)
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a valid integer"}
	}
	return v, nil
}

// parseDurationEnv reads a duration from an environment variable.
// Falls back to defaultVal if the variable is unset or unparseable.
// Accepts Go duration strings like "30s", "10m".
func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultVal
	}
	return d
}
