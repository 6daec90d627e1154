package config

import (
	"time"

	"github.com/vietddude/governor/internal/infra/storage/postgres"
	redisstore "github.com/vietddude/governor/internal/infra/storage/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Service ServiceConfig `yaml:"service"`
	Retry   RetryConfig   `yaml:"retry"`
	Store   StoreConfig   `yaml:"store"`
	Audit   AuditConfig   `yaml:"audit"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds health/metrics server settings. Port 0 disables it.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ServiceConfig holds settings for the remote reviewer service.
type ServiceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Tier    string        `yaml:"tier"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig holds rotation and backoff settings.
type RetryConfig struct {
	MaxAttemptsPerCredential int           `yaml:"max_attempts_per_credential"`
	InitialDelay             time.Duration `yaml:"initial_delay"`
	MaxDelay                 time.Duration `yaml:"max_delay"`
	QuotaCooldown            time.Duration `yaml:"quota_cooldown"`
}

// StoreConfig selects and configures the credential store backend.
type StoreConfig struct {
	Backend  string            `yaml:"backend"` // file, postgres, redis
	Path     string            `yaml:"path"`    // file backend: credential directory
	Database postgres.Config   `yaml:"database"`
	Redis    redisstore.Config `yaml:"redis"`
}

// AuditConfig holds audit log settings. An empty Dir means resolve the
// workspace root at startup and use <root>/audit.
type AuditConfig struct {
	Dir  string `yaml:"dir"`
	Node string `yaml:"node"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
