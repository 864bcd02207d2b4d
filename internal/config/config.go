// Package config handles application configuration management.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all Inkwell data (~/.inkwell)
	BaseDir string

	// Debug enables verbose database and engine logging.
	Debug bool

	// Sync holds network-facing settings for the sync engine.
	Sync SyncSettings
}

// SyncSettings holds network-facing settings for the sync engine.
type SyncSettings struct {
	// HTTPTimeout bounds every single WebDAV operation.
	HTTPTimeout time.Duration
	// RequestsPerSecond throttles WebDAV traffic so a background sync
	// does not saturate a home server.
	RequestsPerSecond float64
	// MaxRetries is the retry budget for transient network failures.
	MaxRetries int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: DefaultBaseDir(),
		Sync: SyncSettings{
			HTTPTimeout:       30 * time.Second,
			RequestsPerSecond: 10,
			MaxRetries:        3,
		},
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if dir := os.Getenv("INKWELL_HOME"); dir != "" {
		cfg.BaseDir = dir
	}

	if v := os.Getenv("INKWELL_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	if v := os.Getenv("INKWELL_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Sync.HTTPTimeout = d
		}
	}

	// Ensure directories exist
	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	paths := GetPaths(cfg)
	dirs := []string{
		cfg.BaseDir,
		paths.Attachments,
		paths.Credentials,
		paths.Logs,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
