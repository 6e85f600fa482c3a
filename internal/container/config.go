// Package container provides dependency injection and lifecycle management
// for the purchase requisition service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/purchase-requisition/internal/config"
)

// Config holds all configuration for the Container.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Workflow configuration
	Workflow WorkflowConfig
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

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration
}

// WorkflowConfig holds workflow engine settings.
type WorkflowConfig struct {
	// AuditEvents subscribes the audit log handler to every event type
	AuditEvents bool

	// Clock overrides time.Now for the workflow engine
	Clock func() time.Time
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/requisitions.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Workflow: WorkflowConfig{
			AuditEvents: true,
		},
	}
}

// FromAppConfig converts the file-based application config
func FromAppConfig(c *config.Config) *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Workflow: WorkflowConfig{
			AuditEvents: c.Workflow.AuditEvents,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must not be negative")
	}
	return nil
}
