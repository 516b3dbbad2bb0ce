// Package container provides dependency injection and lifecycle management
// for the mission order service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Workflow engine configuration
	Workflow WorkflowConfig

	// Document rendering configuration
	Document DocumentConfig

	// Lark API configuration
	Lark LarkConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// WorkflowConfig holds approval engine settings.
type WorkflowConfig struct {
	// InProcessLocks serializes actions on the same mission inside this process
	InProcessLocks bool

	// ReferencePrefix starts every mission reference, e.g. OM-2025-...
	ReferencePrefix string
}

// DocumentConfig holds printable mission order settings.
type DocumentConfig struct {
	Organization string
	Currency     string
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// Enabled turns on forwarding of notifications to Lark
	Enabled bool

	// AppID is the Lark application ID
	AppID string

	// AppSecret is the Lark application secret
	AppSecret string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/missions.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Workflow: WorkflowConfig{
			ReferencePrefix: "OM",
		},
		Document: DocumentConfig{
			Currency: "XOF",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	}

	return nil
}
