// Package config provides configuration loading and validation from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	LogLevel          string        // debug, info, warn, error
	ListenAddr        string        // Server listen address (e.g., ":8080")
	DatabasePath      string        // SQLite database path
	MetricsListenAddr string        // Metrics listener address (e.g., "localhost:9090")
	EncryptionKey     []byte        // Required: 32-byte server key (64 hex chars)
	SessionTimeout    time.Duration // Browser session lifetime
	ActivityEnabled   bool          // Publish audit events
	BootstrapUser     string        // Optional: account seeded at startup
	BootstrapPassword string        // Required when BootstrapUser is set
}

// Load parses configuration from environment variables.
// All configuration options except ENCRYPTION_KEY have sensible defaults.
func Load() (*Config, error) {
	logLevel := os.Getenv("LOG_LEVEL")
	listenAddr := os.Getenv("LISTEN_ADDR")
	databasePath := os.Getenv("DATABASE_PATH")
	metricsListenAddr := os.Getenv("METRICS_LISTEN_ADDR")

	// Set defaults for optional fields
	if logLevel == "" {
		logLevel = "info"
	}

	if listenAddr == "" {
		listenAddr = ":8080"
	}

	if databasePath == "" {
		databasePath = "/data/apptokens.db"
	}

	if metricsListenAddr == "" {
		metricsListenAddr = "localhost:9090"
	}

	var encryptionKey []byte
	if raw := os.Getenv("ENCRYPTION_KEY"); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be hex encoded: %w", err)
		}
		encryptionKey = key
	}

	sessionTimeout := 24 * time.Hour
	if raw := os.Getenv("SESSION_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT %q: %w", raw, err)
		}
		sessionTimeout = d
	}

	activityEnabled := true
	if raw := os.Getenv("ACTIVITY_ENABLED"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ACTIVITY_ENABLED %q: %w", raw, err)
		}
		activityEnabled = b
	}

	cfg := &Config{
		LogLevel:          logLevel,
		ListenAddr:        listenAddr,
		DatabasePath:      databasePath,
		MetricsListenAddr: metricsListenAddr,
		EncryptionKey:     encryptionKey,
		SessionTimeout:    sessionTimeout,
		ActivityEnabled:   activityEnabled,
		BootstrapUser:     os.Getenv("BOOTSTRAP_USER"),
		BootstrapPassword: os.Getenv("BOOTSTRAP_PASSWORD"),
	}

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	if len(c.EncryptionKey) == 0 {
		return fmt.Errorf("ENCRYPTION_KEY environment variable is required")
	}
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (32 bytes), got %d bytes", len(c.EncryptionKey))
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if c.BootstrapUser != "" && c.BootstrapPassword == "" {
		return fmt.Errorf("BOOTSTRAP_PASSWORD is required when BOOTSTRAP_USER is set")
	}
	return nil
}
