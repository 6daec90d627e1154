package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Service.BaseURL == "" {
		cfg.Service.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Service.Timeout == 0 {
		cfg.Service.Timeout = 60 * time.Second
	}
	if cfg.Retry.MaxAttemptsPerCredential == 0 {
		cfg.Retry.MaxAttemptsPerCredential = 3
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 2 * time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 60 * time.Second
	}
	if cfg.Retry.QuotaCooldown == 0 {
		cfg.Retry.QuotaCooldown = 6 * time.Hour
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "file"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
