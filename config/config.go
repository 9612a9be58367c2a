// Package config provides server configuration loading and validation.
// The schema document itself lives in its own JSON file (see
// core/schema); this package only covers process-level settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names for Docker-style deployments.
const (
	EnvPort       = "SCHEMAGATE_SERVER_PORT"
	EnvHost       = "SCHEMAGATE_SERVER_HOST"
	EnvDatabase   = "SCHEMAGATE_DATABASE_PATH"
	EnvSchemaFile = "SCHEMAGATE_SCHEMA_FILE"
	EnvLogLevel   = "SCHEMAGATE_LOG_LEVEL"
	EnvLogFormat  = "SCHEMAGATE_LOG_FORMAT"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Schema   SchemaConfig   `yaml:"schema"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the primary record store.
type DatabaseConfig struct {
	// Path is the SQLite database file. Empty means fallback-only
	// (in-memory) mode.
	Path string `yaml:"path"`

	// ConnectTimeout bounds the startup connection attempt. A timeout
	// means "unavailable" and selects the in-memory fallback.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// SchemaConfig locates the schema document.
type SchemaConfig struct {
	// File is the JSON schema document driving models and routes.
	File string `yaml:"file"`

	// Watch enables fsnotify hot reload of the schema file.
	Watch bool `yaml:"watch"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns the configuration defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:           "schemagate.db",
			ConnectTimeout: 3 * time.Second,
		},
		Schema: SchemaConfig{
			File:  "schema.json",
			Watch: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from a YAML file, applying defaults and env
// overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithFallback loads from the file when it exists and from defaults
// plus environment variables otherwise. Missing config is not an error:
// the scaffold runs usefully with defaults alone.
func LoadWithFallback(path string) (Config, error) {
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := Defaults()
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Schema.File == "" {
		return fmt.Errorf("schema.file is required")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv(EnvSchemaFile); v != "" {
		cfg.Schema.File = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
}
