// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Mirror   MirrorConfig
	Import   ImportConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StorageConfig selects where sessions and mappings are kept.
type StorageConfig struct {
	// Driver is "sqlite", "file" or "memory" (default: sqlite)
	Driver string `env:"STORE_DRIVER" default:"sqlite"`

	// Dir is the directory for the file driver (default: ./data)
	Dir string `env:"STORE_DIR" default:"./data"`

	// SQLitePath is the database file for the sqlite driver
	SQLitePath string `env:"STORE_SQLITE_PATH" default:"./data/nexus-import.db"`
}

// MirrorConfig holds the optional PostgreSQL mirror settings.
// The mirror is disabled when DatabaseURL is empty.
type MirrorConfig struct {
	// DatabaseURL is the PostgreSQL connection string
	// Supports both MIRROR_DATABASE_URL and DATABASE_URL env vars
	DatabaseURL string `env:"MIRROR_DATABASE_URL" envAlt:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"MIRROR_MAX_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"MIRROR_MAX_CONN_LIFETIME" default:"1h"`

	// Timeout bounds one mirror delivery (default: 10s)
	Timeout time.Duration `env:"MIRROR_TIMEOUT" default:"10s"`
}

// Enabled reports whether a mirror database is configured.
func (c MirrorConfig) Enabled() bool {
	return c.DatabaseURL != ""
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted export size in bytes (default: 16MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"16777216"`

	// MaxConcurrent is the maximum number of parallel parses (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a parse slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// PreviewRows is how many normalized rows a preview shows (default: 30)
	PreviewRows int `env:"IMPORT_PREVIEW_ROWS" default:"30"`

	// CandidateRetention is how long finished imports stay queryable (default: 30m)
	CandidateRetention time.Duration `env:"IMPORT_CANDIDATE_RETENTION" default:"30m"`

	// ProfilesFile is an optional YAML file with extra header synonyms
	ProfilesFile string `env:"IMPORT_PROFILES_FILE"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects /api requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
