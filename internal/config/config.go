// Package config handles loading and parsing of folderstore configuration.
package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/folderstore/folderstore/internal/storage"
)

// Config is the top-level configuration for folderstore.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Validation ValidationConfig `yaml:"validation"`
	// Entries are the persisted connection entries loaded at startup.
	Entries []EntryConfig `yaml:"entries"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeout is the graceful shutdown timeout in seconds.
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: text, json.
	Format string `yaml:"format"`
}

// ValidationConfig holds connection validation settings.
type ValidationConfig struct {
	// AllowAnyEndpoint admits endpoint hosts outside amazonaws.com,
	// for self-hosted S3-compatible stores.
	AllowAnyEndpoint bool `yaml:"allow_any_endpoint"`
}

// EntryConfig is one persisted connection entry. Connection carries the
// credentials, bucket, endpoint and base path.
type EntryConfig struct {
	// ID identifies the entry across reloads. Assigned on load when empty.
	ID string `yaml:"id"`

	storage.ConnectionConfig `yaml:",inline"`
}

// Load reads a YAML configuration file from the given path and returns a
// parsed Config with defaults applied. Entries without an id get a generated
// one.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9400,
			ShutdownTimeout: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyDefaults fills in any fields still at their zero value after YAML
// unmarshaling.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9400
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	for i := range cfg.Entries {
		if cfg.Entries[i].ID == "" {
			cfg.Entries[i].ID = uuid.NewString()
		}
		if cfg.Entries[i].Region == "" {
			cfg.Entries[i].Region = storage.DefaultRegion
		}
	}
}
