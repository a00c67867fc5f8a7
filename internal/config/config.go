// Package config provides centralized configuration management for the
// pipeline. It loads settings from environment variables with sensible
// defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Paths    PathsConfig
	Engine   EngineConfig
	Load     LoadConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds warehouse connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required for run/check/serve
	// with load enabled). Supports DATABASE_URL and DB_URL for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// PathsConfig holds the data directory layout.
type PathsConfig struct {
	// PatientsFile is the raw patients CSV (default: data/raw/patients.csv)
	PatientsFile string `env:"ETL_PATIENTS_FILE" default:"data/raw/patients.csv"`

	// EncountersFile is the raw encounters CSV (default: data/raw/encounters.csv)
	EncountersFile string `env:"ETL_ENCOUNTERS_FILE" default:"data/raw/encounters.csv"`

	// DiagnosesFile is the raw diagnoses XML (default: data/raw/diagnoses.xml)
	DiagnosesFile string `env:"ETL_DIAGNOSES_FILE" default:"data/raw/diagnoses.xml"`

	// LogsDir receives the per-entity outcome logs (default: data/logs)
	LogsDir string `env:"ETL_LOGS_DIR" default:"data/logs"`
}

// EngineConfig tunes the quality engine.
type EngineConfig struct {
	// Workers bounds the parallel standardize/validate fan-out (default: 4)
	Workers int `env:"ETL_WORKERS" default:"4"`
}

// LoadConfig holds database load settings.
type LoadConfig struct {
	// Timeout is the maximum duration for the load transaction (default: 5m)
	Timeout time.Duration `env:"LOAD_TIMEOUT" default:"5m"`
}

// ServerConfig holds dashboard API server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
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
