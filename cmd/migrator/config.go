package main

import (
	"fmt"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/config"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

// Config holds the migration tool configuration.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// MigrationTable tracks applied migrations.
	MigrationTable string

	maskedURL string
}

// LoadConfig loads configuration from environment variables. The database
// URL comes from DATABASE_URL or the individual PG_* variables, same as the
// services.
func LoadConfig() (*Config, error) {
	storageConfig := storage.LoadConfig()

	cfg := &Config{
		DatabaseURL:    storageConfig.DatabaseURL(),
		MigrationTable: config.GetEnvStr("MIGRATION_TABLE", "schema_migrations"),
		maskedURL:      storageConfig.MaskDatabaseURL(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return storage.ErrDatabaseNotConfigured
	}

	if c.MigrationTable == "" {
		return fmt.Errorf("MIGRATION_TABLE cannot be empty")
	}

	return nil
}

// String returns a representation safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DatabaseURL: %s, MigrationTable: %s}", c.maskedURL, c.MigrationTable)
}
